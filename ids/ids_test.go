package ids_test

import (
	"testing"

	"github.com/flowrt/flowrt/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItemId(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "Valid", input: "vec_copy_item", wantErr: false},
		{name: "ValidWithDigits", input: "item_1", wantErr: false},
		{name: "LeadingDigit", input: "1item", wantErr: true},
		{name: "Hyphen", input: "my-item", wantErr: true},
		{name: "Empty", input: "", wantErr: true},
		{name: "Space", input: "my item", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ids.NewItemId(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var fmtErr *ids.InvalidFmtError
				require.ErrorAs(t, err, &fmtErr)
				assert.Equal(t, tt.input, fmtErr.Value)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestInvalidFmtErrorByteIndex(t *testing.T) {
	_, err := ids.NewItemId("abc-def")
	require.Error(t, err)
	var fmtErr *ids.InvalidFmtError
	require.ErrorAs(t, err, &fmtErr)
	assert.Equal(t, 3, fmtErr.ByteIndex)
	assert.Equal(t, '-', fmtErr.Char)
}

func TestNewFlowIdProfileAppName(t *testing.T) {
	flowID, err := ids.NewFlowId("deploy_flow")
	require.NoError(t, err)
	assert.Equal(t, "deploy_flow", flowID.String())

	profile, err := ids.NewProfile("customer_a_prod")
	require.NoError(t, err)
	assert.Equal(t, "customer_a_prod", profile.String())

	app, err := ids.NewAppName("envman")
	require.NoError(t, err)
	assert.Equal(t, "envman", app.String())

	_, err = ids.NewProfile("bad profile")
	assert.Error(t, err)
}

func TestNewRunIdGeneratesDistinctValues(t *testing.T) {
	a := ids.NewRunId()
	b := ids.NewRunId()
	assert.NotEmpty(t, a.String())
	assert.NotEqual(t, a, b)
}
