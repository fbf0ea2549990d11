package drawer_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-travel/pkg/pipeline/drawer"
	"github.com/askiada/go-travel/pkg/pipeline/measure"
	"github.com/askiada/go-travel/pkg/pipeline/model"
)

func TestPipelineDrawer(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pipeline.dot")
	msr := measure.NewDefaultMeasure()
	hooks := []model.PipelineOption{
		measure.PipelineMeasure(msr),
		drawer.PipelineDrawer(drawer.NewDOTDrawer(path), msr),
	}

	lowpass := &model.StepInfo{Index: 0, Name: "lowpass", Inputs: []string{"accel/lis1"}, Outputs: []string{"accel/lis1/lp"}}
	chunk := &model.StepInfo{Index: 1, Name: "chunk", Inputs: []string{"accel/lis1/lp"}, Outputs: []string{"chunks/lis1"}}

	for _, hook := range hooks {
		require.NoError(t, hook.New())
		require.NoError(t, hook.PrepareStep(nil, lowpass))
		require.NoError(t, hook.PrepareStep([]*model.StepInfo{lowpass}, chunk))
		require.NoError(t, hook.OnStepDone(lowpass, time.Millisecond, false))
		require.NoError(t, hook.OnStepDone(chunk, 3*time.Millisecond, true))
	}
	for _, hook := range hooks {
		require.NoError(t, hook.Finish())
	}

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	got := strings.ToLower(string(content))

	assert.Contains(t, got, "strict digraph")
	assert.Contains(t, got, `"start" -> "00_lowpass" [ label="accel/lis1"`)
	assert.Contains(t, got, `"00_lowpass" -> "01_chunk" [ label="accel/lis1/lp"`)
	assert.Contains(t, got, `"01_chunk" -> "end"`)
	assert.NotContains(t, got, `"00_lowpass" -> "end"`)
	assert.Contains(t, got, `style="dashed"`)
	assert.Contains(t, got, `color="#0000f0"`)
	assert.Contains(t, got, `color="#f00000"`)
}

func TestLeaves(t *testing.T) {
	t.Parallel()

	d := drawer.NewDOTDrawer(filepath.Join(t.TempDir(), "g.dot"))
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, d.AddStep(name))
	}
	require.NoError(t, d.AddLink("a", "b"))
	require.Error(t, d.AddLink("a", "missing"))

	leaves, err := d.Leaves()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, leaves)
}
