package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gonum.org/v1/gonum/mat"

	"icarecli/internal/config"
	apperrors "icarecli/internal/errors"
	"icarecli/internal/features"
	"icarecli/internal/infrastructure"
	"icarecli/internal/shared/testutil"
	"icarecli/pkg/contracts/domain"
)

type fakeDiscoverer struct {
	ids []string
	err error
}

func (f *fakeDiscoverer) FindDataFolders(string) ([]string, error) {
	return f.ids, f.err
}

type fakeLoader struct {
	calls  []string
	failOn string
}

func (f *fakeLoader) LoadChallengeData(_, id string) (*domain.PatientMetadata, *domain.RecordingMetadata, []*domain.Recording, error) {
	f.calls = append(f.calls, id)
	if id == f.failOn {
		return nil, nil, nil, apperrors.NewParsingError("bad metadata", nil).WithContext("patient_id", id)
	}
	md := domain.NewPatientMetadata()
	md.Set(domain.FieldPatient, id)
	return md, &domain.RecordingMetadata{Windows: []domain.RecordingWindow{{Hour: 1, Record: "r"}, {Hour: 2, Record: "r"}}}, nil, nil
}

type fakeExtractor struct {
	quality *float64
	opts    []features.Options
}

func (f *fakeExtractor) GetFeatures(_ *domain.PatientMetadata, _ *domain.RecordingMetadata, _ []*domain.Recording, opts features.Options) (*domain.FeatureBundle, error) {
	f.opts = append(f.opts, opts)
	bundle := &domain.FeatureBundle{
		PatientFeatures: []float64{1.0, 2.5, 0.0},
		Summary:         mat.NewDense(2, 6, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}),
		QualityScore:    f.quality,
	}
	for i := range bundle.Bands {
		bundle.Bands[i] = mat.NewDense(2, 1, []float64{float64(i), float64(i)})
	}
	return bundle, nil
}

type fixture struct {
	app       *Application
	loader    *fakeLoader
	extractor *fakeExtractor
	in        string
	out       string
	progress  *bytes.Buffer
}

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	f := &fixture{
		loader:    &fakeLoader{},
		extractor: &fakeExtractor{},
		in:        t.TempDir(),
		out:       filepath.Join(t.TempDir(), "out"),
		progress:  &bytes.Buffer{},
	}
	f.app = NewApplication(config.Default(), logger, nil, Dependencies{
		Discoverer: &fakeDiscoverer{ids: ids},
		Loader:     f.loader,
		Extractor:  f.extractor,
	})
	f.app.Progress = f.progress
	return f
}

func (f *fixture) run(limit string) (*Result, error) {
	return f.app.Run(context.Background(), Options{DataFolder: f.in, ExportFolder: f.out, Limit: limit})
}

func subdirs(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func TestRun_Limit(t *testing.T) {
	tests := []struct {
		name     string
		limit    string
		expected []string
	}{
		{name: "omitted exports all", limit: "", expected: []string{"0284", "0286", "0296"}},
		{name: "two", limit: "2", expected: []string{"0284", "0286"}},
		{name: "exact count", limit: "3", expected: []string{"0284", "0286", "0296"}},
		{name: "above count clamps", limit: "10", expected: []string{"0284", "0286", "0296"}},
		{name: "zero", limit: "0", expected: nil},
		{name: "negative clamps to zero", limit: "-4", expected: nil},
		{name: "surrounding spaces", limit: " 1 ", expected: []string{"0284"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "0284", "0286", "0296")

			result, err := f.run(tt.limit)
			require.NoError(t, err)

			assert.Equal(t, tt.expected, subdirs(t, f.out))
			assert.Equal(t, tt.expected, result.Exported)
			assert.Equal(t, len(tt.expected), result.Limit)
			assert.Equal(t, 3, result.Discovered)
			assert.Equal(t, len(tt.expected)*6, result.Files)
			assert.Equal(t, tt.expected, f.loader.calls)
		})
	}
}

func TestRun_InvalidLimit(t *testing.T) {
	for _, limit := range []string{"abc", "1.5", "2x", "-"} {
		t.Run(limit, func(t *testing.T) {
			f := newFixture(t, "0284", "0286")

			result, err := f.run(limit)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
			assert.Equal(t, apperrors.ExitUsage, apperrors.ExitCode(err))

			assert.NoDirExists(t, f.out)
			assert.Empty(t, f.loader.calls)
		})
	}
}

func TestRun_NoData(t *testing.T) {
	f := newFixture(t)

	result, err := f.run("")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNoData)
	assert.Equal(t, apperrors.ExitNoData, apperrors.ExitCode(err))
	assert.NoDirExists(t, f.out)
}

func TestRun_NoDataBeforeLimitCheck(t *testing.T) {
	f := newFixture(t)

	_, err := f.run("abc")
	assert.ErrorIs(t, err, apperrors.ErrNoData)
}

func TestRun_DiscoveryError(t *testing.T) {
	f := newFixture(t)
	f.app.Deps.Discoverer = &fakeDiscoverer{err: os.ErrNotExist}

	_, err := f.run("")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_PathChecks(t *testing.T) {
	t.Run("missing data folder", func(t *testing.T) {
		f := newFixture(t, "0284")
		f.in = filepath.Join(f.in, "missing")

		_, err := f.run("")
		assert.ErrorIs(t, err, apperrors.ErrStorage)
		assert.NoDirExists(t, f.out)
	})

	t.Run("export folder is a file", func(t *testing.T) {
		f := newFixture(t, "0284")
		require.NoError(t, os.WriteFile(f.out, []byte("x"), 0644))

		_, err := f.run("")
		assert.ErrorIs(t, err, apperrors.ErrStorage)
		assert.Empty(t, f.loader.calls)
	})

	t.Run("workbook is not xlsx", func(t *testing.T) {
		f := newFixture(t, "0284")
		f.app.Config.Export.Workbook = filepath.Join(t.TempDir(), "patients.csv")

		_, err := f.run("")
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
		assert.NoDirExists(t, f.out)
	})
}

func TestRun_PatientFailureAborts(t *testing.T) {
	f := newFixture(t, "0284", "0286", "0296")
	f.loader.failOn = "0286"

	result, err := f.run("")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrParsing)
	assert.Contains(t, err.Error(), "0286")
	assert.Equal(t, apperrors.ExitFailure, apperrors.ExitCode(err))

	require.NotNil(t, result)
	assert.Equal(t, []string{"0284"}, result.Exported)
	assert.Equal(t, []string{"0284"}, subdirs(t, f.out))
	assert.Equal(t, []string{"0284", "0286"}, f.loader.calls)
}

func TestRun_ContextCanceled(t *testing.T) {
	f := newFixture(t, "0284", "0286")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.app.Run(ctx, Options{DataFolder: f.in, ExportFolder: f.out})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Exported)
	assert.NoDirExists(t, f.out)
}

func TestRun_ExtractorOptions(t *testing.T) {
	f := newFixture(t, "0284")

	_, err := f.run("")
	require.NoError(t, err)
	assert.Equal(t, []features.Options{{Stacked: false, EncodeSex: false}}, f.extractor.opts)
}

func TestRun_PatientFiles(t *testing.T) {
	f := newFixture(t, "0284")

	result, err := f.run("")
	require.NoError(t, err)

	dir := filepath.Join(f.out, "0284")
	patient, err := os.ReadFile(filepath.Join(dir, "patient_0284.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1.0000000000000000,2.5000000000000000,0.0000000000000000\n", string(patient))

	summary, err := os.ReadFile(filepath.Join(dir, "recordings_summary_0284.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(summary), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, config.SummaryHeader, lines[0])
	assert.Len(t, strings.Split(lines[1], ","), 6)
	assert.Len(t, strings.Split(lines[2], ","), 6)

	assert.NoFileExists(t, filepath.Join(f.out, "0284", "recordings_0284.csv"))
	assert.Positive(t, result.Bytes)
}

func TestRun_QualityScoreModes(t *testing.T) {
	score := 0.5

	t.Run("append", func(t *testing.T) {
		f := newFixture(t, "0284")
		f.extractor.quality = &score

		_, err := f.run("")
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(f.out, "0284", "patient_0284.csv"))
		require.NoError(t, err)
		assert.Len(t, strings.Split(strings.TrimSpace(string(data)), ","), 4)
	})

	t.Run("file", func(t *testing.T) {
		f := newFixture(t, "0284")
		f.extractor.quality = &score
		f.app.Config.Export.QualityScore = config.QualityScoreFile

		result, err := f.run("")
		require.NoError(t, err)
		assert.Equal(t, 7, result.Files)
		assert.FileExists(t, filepath.Join(f.out, "0284", "quality_0284.csv"))
	})
}

func TestRun_DirPrefix(t *testing.T) {
	f := newFixture(t, "0284")
	f.app.Config.Export.DirPrefix = config.ChallengeDirPrefix

	_, err := f.run("")
	require.NoError(t, err)
	assert.Equal(t, []string{"ICARE_0284"}, subdirs(t, f.out))
}

func TestRun_Progress(t *testing.T) {
	f := newFixture(t, "0284", "0286", "0296")

	_, err := f.run("2")
	require.NoError(t, err)
	assert.Equal(t,
		"Exporting 1 of 2 patients\nExported patient 0284\nExporting 2 of 2 patients\nExported patient 0286\n",
		f.progress.String())

	quiet := newFixture(t, "0284")
	quiet.app.Config.Export.Progress = false
	_, err = quiet.run("")
	require.NoError(t, err)
	assert.Empty(t, quiet.progress.String())
}

func TestRun_Workbook(t *testing.T) {
	f := newFixture(t, "0284", "0286")
	f.app.Config.Export.Workbook = filepath.Join(t.TempDir(), "patients.xlsx")

	_, err := f.run("")
	require.NoError(t, err)

	wb, err := excelize.OpenFile(f.app.Config.Export.Workbook)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(config.DefaultWorkbookSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "0284", rows[1][0])
	assert.Equal(t, "0286", rows[2][0])
}

func TestRun_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	f := newFixture(t, "0284", "0286")
	f.app.Telemetry = &infrastructure.Telemetry{Tracer: provider.Tracer("test")}

	_, err := f.run("")
	require.NoError(t, err)

	counts := map[string]int{}
	var patientIDs []string
	for _, s := range recorder.Ended() {
		counts[s.Name()]++
		if s.Name() == "export.patient" {
			for _, attr := range s.Attributes() {
				if attr.Key == "patient.id" {
					patientIDs = append(patientIDs, attr.Value.AsString())
				}
			}
		}
	}
	assert.Equal(t, 1, counts["export.run"])
	assert.Equal(t, 2, counts["export.patient"])
	assert.Equal(t, 12, counts["export.write_file"])
	assert.Equal(t, []string{"0284", "0286"}, patientIDs)
}

func TestRun_Metrics(t *testing.T) {
	metricsFile := filepath.Join(t.TempDir(), "export.prom")
	cfg := config.Default().Telemetry
	cfg.MetricsFile = metricsFile

	telemetry, err := infrastructure.InitializeOTel(cfg, nil)
	require.NoError(t, err)

	f := newFixture(t, "0284", "0286")
	f.app.Telemetry = telemetry
	_, err = f.run("")
	require.NoError(t, err)

	f.loader.failOn = "0284"
	_, err = f.run("")
	require.Error(t, err)

	require.NoError(t, telemetry.Shutdown(context.Background()))

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "export_patients_total")
	assert.Contains(t, text, "export_files_total")
	assert.Contains(t, text, "PARSING")
}

type fakeOutput struct {
	opened int
	err    error
}

func (o *fakeOutput) Open() error {
	o.opened++
	return o.err
}

func TestRun_OutputsOpenAfterPreChecks(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default().Telemetry
	cfg.MetricsFile = filepath.Join(dir, "metrics", "export.prom")
	cfg.TraceFile = filepath.Join(dir, "traces", "run.json")

	t.Run("rejected run writes nothing", func(t *testing.T) {
		telemetry, err := infrastructure.InitializeOTel(cfg, nil)
		require.NoError(t, err)

		f := newFixture(t)
		out := &fakeOutput{}
		f.app.Telemetry = telemetry
		f.app.Outputs = []Output{out}

		_, err = f.run("")
		require.ErrorIs(t, err, apperrors.ErrNoData)
		require.NoError(t, telemetry.Shutdown(context.Background()))

		assert.Zero(t, out.opened)
		assert.NoDirExists(t, filepath.Join(dir, "metrics"))
		assert.NoDirExists(t, filepath.Join(dir, "traces"))
	})

	t.Run("accepted run opens outputs once", func(t *testing.T) {
		telemetry, err := infrastructure.InitializeOTel(cfg, nil)
		require.NoError(t, err)

		f := newFixture(t, "0284")
		out := &fakeOutput{}
		f.app.Telemetry = telemetry
		f.app.Outputs = []Output{out}

		_, err = f.run("")
		require.NoError(t, err)
		require.NoError(t, telemetry.Shutdown(context.Background()))

		assert.Equal(t, 1, out.opened)
		assert.FileExists(t, cfg.MetricsFile)
		assert.FileExists(t, cfg.TraceFile)
	})

	t.Run("open failure aborts before export", func(t *testing.T) {
		f := newFixture(t, "0284")
		f.app.Outputs = []Output{&fakeOutput{err: os.ErrPermission}}

		_, err := f.run("")
		assert.ErrorIs(t, err, apperrors.ErrStorage)
		assert.ErrorIs(t, err, os.ErrPermission)
		assert.Empty(t, f.loader.calls)
		assert.NoDirExists(t, f.out)
	})
}

func TestResolveLimit(t *testing.T) {
	tests := []struct {
		limit    string
		patients int
		expected int
		wantErr  bool
	}{
		{"", 5, 5, false},
		{"3", 5, 3, false},
		{"+3", 5, 3, false},
		{"7", 5, 5, false},
		{"0", 5, 0, false},
		{"-1", 5, 0, false},
		{"99999999999999999999", 5, 5, false},
		{"-99999999999999999999", 5, 0, false},
		{"abc", 5, 0, true},
		{"3.0", 5, 0, true},
		{" ", 5, 0, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.limit), func(t *testing.T) {
			got, err := resolveLimit(tt.limit, tt.patients)
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRun_EndToEnd(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "export")

	for _, id := range []string{"0286", "0284"} {
		testutil.WritePatient(t, in, testutil.PatientFixture{
			ID:       id,
			Metadata: testutil.DefaultMetadata(id),
			Windows: []testutil.WindowFixture{
				{Hour: 1},
				{
					Hour:     2,
					Time:     "02:00:00",
					Quality:  "0.8",
					Record:   fmt.Sprintf("ICARE_%s_02", id),
					Signal:   testutil.SineChannels(128, 1024, 100, 10, 20),
					Fs:       128,
					Gain:     2,
					Channels: []string{"Fp1", "Fp2"},
				},
			},
		})
	}
	// folders without metadata are not patients
	require.NoError(t, os.Mkdir(filepath.Join(in, "notes"), 0755))

	logger, handler := testutil.NewTestLogger(t)
	application := NewApplication(config.Default(), logger, nil, Dependencies{})

	result, err := application.Run(context.Background(), Options{DataFolder: in, ExportFolder: out})
	require.NoError(t, err)
	assert.Equal(t, []string{"0284", "0286"}, result.Exported)
	assert.Equal(t, 2, result.Discovered)

	dir := filepath.Join(out, "0284")
	patient, err := os.ReadFile(filepath.Join(dir, "patient_0284.csv"))
	require.NoError(t, err)
	cells := strings.Split(strings.TrimSpace(string(patient)), ",")
	require.Len(t, cells, 7)
	assert.Equal(t, "53.0000000000000000", cells[0])
	assert.Equal(t, "1.0000000000000000", cells[1])
	assert.Equal(t, "nan", cells[2])
	assert.Equal(t, "0.8000000000000000", cells[6])

	summary, err := os.ReadFile(filepath.Join(dir, "recordings_summary_0284.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(summary), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "nan,nan,nan,nan,nan,nan", lines[1])

	alpha, err := os.ReadFile(filepath.Join(dir, "alpha_psd 0284.csv"))
	require.NoError(t, err)
	alphaLines := strings.Split(strings.TrimSuffix(string(alpha), "\n"), "\n")
	require.Len(t, alphaLines, 2)
	assert.Equal(t, "nan,nan", alphaLines[0])
	assert.Len(t, strings.Split(alphaLines[1], ","), 2)

	snapshot := map[string][]byte{}
	for _, id := range result.Exported {
		entries, err := os.ReadDir(filepath.Join(out, id))
		require.NoError(t, err)
		for _, e := range entries {
			data, err := os.ReadFile(filepath.Join(out, id, e.Name()))
			require.NoError(t, err)
			snapshot[filepath.Join(id, e.Name())] = data
		}
	}
	assert.Len(t, snapshot, 12)

	_, err = application.Run(context.Background(), Options{DataFolder: in, ExportFolder: out})
	require.NoError(t, err)
	for name, data := range snapshot {
		again, err := os.ReadFile(filepath.Join(out, name))
		require.NoError(t, err)
		assert.Equal(t, data, again, name)
	}

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "Export completed")
	testutil.AssertNoErrors(t, handler)
}
