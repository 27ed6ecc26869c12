package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hlsgen/internal/backend"
	"github.com/roach88/hlsgen/internal/diag"
	"github.com/roach88/hlsgen/internal/manifest"
	"github.com/roach88/hlsgen/internal/store"
)

type generateResponse struct {
	Status   string            `json:"status"`
	Data     GenerateResult    `json:"data"`
	Error    *CLIError         `json:"error"`
	Warnings []diag.Diagnostic `json:"warnings"`
}

func TestGenerateText(t *testing.T) {
	path := writeManifest(t, testManifest)

	out, _, err := execute(t, "generate", path)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Generated myproject for vivado (5 type(s), 0 warning(s))")
	assert.Contains(t, out, "#ifndef DEFINES_H_")
	assert.Contains(t, out, "#include \"ap_fixed.h\"")
	assert.Contains(t, out, "typedef ap_fixed<16,6> input_t;")
	assert.Contains(t, out, "typedef ap_fixed<16,6,AP_RND,AP_SAT,2> layer2_t;")
	assert.Contains(t, out, "input_t input_1[N_INPUT_1_1];")
	assert.Contains(t, out, "#pragma HLS ARRAY_RESHAPE variable=layer2_out cyclic factor=2 dim=0")
}

func TestGenerateJSON(t *testing.T) {
	path := writeManifest(t, testManifest)

	out, _, err := execute(t, "--format", "json", "generate", "--backend", "catapult", path)
	require.NoError(t, err)

	var resp generateResponse
	require.NoError(t, decodeJSON(out, &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "myproject", resp.Data.Model)
	assert.Equal(t, "catapult", resp.Data.Backend)
	assert.Equal(t, "ac", resp.Data.Family)
	assert.Len(t, resp.Data.ManifestHash, 64)
	assert.Equal(t, []string{"input_t", "layer2_t", "layer3_t", "weight2_t", "bias2_t"}, resp.Data.Types)
	assert.Contains(t, resp.Data.Defines, "#include \"ac_fixed.h\"")
	assert.Contains(t, resp.Data.Declarations, "bias2_t b2[8];")

	// ac_fixed cannot express saturation bits; the value is dropped with a warning.
	require.NotEmpty(t, resp.Warnings)
	assert.Equal(t, diag.CodeInvalidConfigurationValue, resp.Warnings[0].Code)
	assert.Equal(t, "2", resp.Warnings[0].Attrs["saturation_bits"])
}

func TestGenerateWarningsLoggedToStderr(t *testing.T) {
	path := writeManifest(t, testManifest)

	out, stderr, err := execute(t, "generate", "--backend", "oneapi", path)
	require.NoError(t, err)
	assert.Contains(t, out, "warning(s))")
	assert.Contains(t, stderr, "level=WARN")
	assert.Contains(t, stderr, "code=INVALID_CONFIGURATION_VALUE")
}

func TestGenerateWritesFiles(t *testing.T) {
	path := writeManifest(t, testManifest)
	dir := t.TempDir()
	defines := filepath.Join(dir, "defines.h")
	config := filepath.Join(dir, "resolved.yaml")

	out, _, err := execute(t, "generate", "--output", defines, "--config-out", config, path)
	require.NoError(t, err)
	assert.Contains(t, out, "defines written to "+defines)
	assert.NotContains(t, out, "#ifndef")

	header, err := os.ReadFile(defines)
	require.NoError(t, err)
	assert.Contains(t, string(header), "#ifndef DEFINES_H_")
	assert.Contains(t, string(header), "#endif\n")

	original, errs := manifest.Load(path)
	require.Empty(t, errs)
	resolved, errs := manifest.Load(config)
	require.Empty(t, errs)
	assert.Equal(t, original.Resolved, resolved.Resolved)
}

func TestGenerateRecordsRun(t *testing.T) {
	path := writeManifest(t, testManifest)
	db := filepath.Join(t.TempDir(), "runs.db")

	opts := &GenerateOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    db,
		IDGenerator: store.NewFixedGenerator("run-1"),
	}
	cmd := NewGenerateCommand(opts.RootOptions)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, runGenerate(opts, path, cmd))

	var resp generateResponse
	require.NoError(t, decodeJSON(out.String(), &resp))
	assert.Equal(t, "run-1", resp.Data.RunID)
	assert.Equal(t, int64(1), resp.Data.Seq)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "vivado", run.Backend)
	assert.Equal(t, "io_parallel", run.IOType)
	assert.Equal(t, resp.Data.ManifestHash, run.ManifestHash)
	assert.Equal(t, resp.Data.Defines, run.Defines)
	assert.Equal(t, resp.Data.Declarations, run.Declarations)
	require.Len(t, run.Types, 5)
	assert.Equal(t, store.TypeRecord{Name: "weight2_t", Kind: "CompressedType"}, run.Types[3])
}

func TestGenerateManifestNotFound(t *testing.T) {
	out, _, err := execute(t, "generate", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), manifest.ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestGenerateInvalidManifestJSON(t *testing.T) {
	bad := `name: myproject
tensors:
  - name: input_1
    type: input_t
    precision: fixed<16>
    shape: [{name: N, size: 4}]
`
	out, _, err := execute(t, "--format", "json", "generate", writeManifest(t, bad))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, decodeJSON(out, &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, manifest.ErrCodeInvalidPrecision, resp.Error.Code)
}

func TestGenerateUnknownBackend(t *testing.T) {
	out, _, err := execute(t, "generate", "--backend", "verilator", writeManifest(t, testManifest))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [UNKNOWN_BACKEND]")
}

func TestErrorCode(t *testing.T) {
	conv := &backend.ConversionError{Code: backend.ErrCodeUnsupportedPrecisionKind, Message: "no"}
	assert.Equal(t, "UNSUPPORTED_PRECISION_KIND", errorCode(conv))
	assert.Equal(t, ErrCodeEmit, errorCode(&stageError{code: ErrCodeEmit, err: errors.New("x")}))
	assert.Equal(t, manifest.ErrCodeGeneric, errorCode(errors.New("x")))
}
