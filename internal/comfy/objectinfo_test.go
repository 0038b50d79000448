package comfy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChoiceValuesLegacyWrapped(t *testing.T) {
	raw := []byte(`{"CheckpointLoaderSimple":{"input":{"required":{"ckpt_name":[["a.ckpt","v1-5-pruned.ckpt"],{}]}}}}`)
	got, err := ChoiceValues(raw, "CheckpointLoaderSimple", "ckpt_name")
	require.NoError(t, err)
	require.Equal(t, []string{"a.ckpt", "v1-5-pruned.ckpt"}, got)
}

func TestChoiceValuesUnwrapped(t *testing.T) {
	raw := []byte(`{"input":{"required":{"ckpt_name":[["only.safetensors"]]}}}`)
	got, err := ChoiceValues(raw, "CheckpointLoaderSimple", "ckpt_name")
	require.NoError(t, err)
	require.Equal(t, []string{"only.safetensors"}, got)
}

func TestChoiceValuesComboForm(t *testing.T) {
	raw := []byte(`{"CheckpointLoaderSimple":{"input":{"required":{"ckpt_name":["COMBO",{"options":["x.ckpt"]}]}}}}`)
	got, err := ChoiceValues(raw, "CheckpointLoaderSimple", "ckpt_name")
	require.NoError(t, err)
	require.Equal(t, []string{"x.ckpt"}, got)
}

func TestChoiceValuesFailures(t *testing.T) {
	for name, raw := range map[string]string{
		"empty list":    `{"input":{"required":{"ckpt_name":[[]]}}}`,
		"missing input": `{"input":{"required":{}}}`,
		"not combo":     `{"input":{"required":{"ckpt_name":["STRING",{}]}}}`,
	} {
		_, err := ChoiceValues([]byte(raw), "CheckpointLoaderSimple", "ckpt_name")
		require.ErrorIs(t, err, ErrNoChoices, name)
	}

	_, err := ChoiceValues([]byte(`not json`), "CheckpointLoaderSimple", "ckpt_name")
	require.Error(t, err)
}
