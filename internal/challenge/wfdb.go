package challenge

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// defaultGain is the WFDB gain assumed when a header gives 0 or none
const defaultGain = 200.0

// Header is a parsed single-segment WFDB header
type Header struct {
	RecordName        string
	NumSignals        int
	SamplingFrequency float64
	NumSamples        int
	Signals           []SignalSpec
}

// SignalSpec describes one signal line of a WFDB header
type SignalSpec struct {
	FileName    string
	Format      string
	Gain        float64
	Baseline    float64
	Units       string
	ADCZero     float64
	Description string
}

// Channels returns the signal descriptions in header order
func (h *Header) Channels() []string {
	out := make([]string, len(h.Signals))
	for i, s := range h.Signals {
		out[i] = s.Description
	}
	return out
}

// ParseHeader parses a WFDB header. Comment lines start with '#'.
func ParseHeader(r io.Reader) (*Header, error) {
	scanner := bufio.NewScanner(r)

	var h *Header
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		if h == nil {
			var err error
			h, err = parseRecordLine(fields)
			if err != nil {
				return nil, err
			}
			continue
		}

		if len(h.Signals) == h.NumSignals {
			break
		}
		spec, err := parseSignalLine(fields)
		if err != nil {
			return nil, fmt.Errorf("signal %d: %w", len(h.Signals)+1, err)
		}
		h.Signals = append(h.Signals, spec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if h == nil {
		return nil, fmt.Errorf("header has no record line")
	}
	if len(h.Signals) != h.NumSignals {
		return nil, fmt.Errorf("header declares %d signals but describes %d", h.NumSignals, len(h.Signals))
	}
	return h, nil
}

// parseRecordLine parses "name[/segments] nsig [fs[/counter][(base)] [nsamp ...]]"
func parseRecordLine(fields []string) (*Header, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("invalid record line %q", strings.Join(fields, " "))
	}

	h := &Header{RecordName: fields[0], SamplingFrequency: 250}
	if name, _, ok := strings.Cut(fields[0], "/"); ok {
		h.RecordName = name
	}

	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid signal count %q", fields[1])
	}
	h.NumSignals = n

	if len(fields) > 2 {
		fs := fields[2]
		if i := strings.IndexAny(fs, "/("); i >= 0 {
			fs = fs[:i]
		}
		freq, err := strconv.ParseFloat(fs, 64)
		if err != nil || freq <= 0 {
			return nil, fmt.Errorf("invalid sampling frequency %q", fields[2])
		}
		h.SamplingFrequency = freq
	}

	if len(fields) > 3 {
		samples, err := strconv.Atoi(fields[3])
		if err != nil || samples < 0 {
			return nil, fmt.Errorf("invalid sample count %q", fields[3])
		}
		h.NumSamples = samples
	}

	return h, nil
}

// parseSignalLine parses
// "file format [gain[(baseline)][/units] [adcres [adczero [initval [checksum [blocksize [description]]]]]]]"
func parseSignalLine(fields []string) (SignalSpec, error) {
	if len(fields) < 2 {
		return SignalSpec{}, fmt.Errorf("invalid signal line %q", strings.Join(fields, " "))
	}

	spec := SignalSpec{
		FileName: fields[0],
		Format:   fields[1],
		Gain:     defaultGain,
	}

	if len(fields) > 4 {
		zero, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return spec, fmt.Errorf("invalid ADC zero %q", fields[4])
		}
		spec.ADCZero = zero
	}
	spec.Baseline = spec.ADCZero

	if len(fields) > 2 {
		if err := parseGain(fields[2], &spec); err != nil {
			return spec, err
		}
	}

	if len(fields) > 8 {
		spec.Description = strings.Join(fields[8:], " ")
	}
	return spec, nil
}

// parseGain parses "gain[(baseline)][/units]" into spec
func parseGain(token string, spec *SignalSpec) error {
	gainPart, units, _ := strings.Cut(token, "/")
	spec.Units = units

	if open := strings.IndexByte(gainPart, '('); open >= 0 {
		closing := strings.IndexByte(gainPart, ')')
		if closing < open {
			return fmt.Errorf("invalid gain %q", token)
		}
		baseline, err := strconv.ParseFloat(gainPart[open+1:closing], 64)
		if err != nil {
			return fmt.Errorf("invalid baseline in %q", token)
		}
		spec.Baseline = baseline
		gainPart = gainPart[:open]
	}

	gain, err := strconv.ParseFloat(gainPart, 64)
	if err != nil {
		return fmt.Errorf("invalid gain %q", token)
	}
	if gain == 0 {
		gain = defaultGain
	}
	spec.Gain = gain
	return nil
}
