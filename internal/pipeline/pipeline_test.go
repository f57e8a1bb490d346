package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/clearsign/pkg/types"
)

type fakeResolver struct {
	calls int
	abi   json.RawMessage
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, _ string, supplied json.RawMessage) (json.RawMessage, error) {
	if types.Present(supplied) {
		return supplied, nil
	}
	f.calls++
	return f.abi, f.err
}

type fakeCompleter struct {
	calls  int
	prompt string
	apiKey string
	out    string
	err    error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt, apiKey string) (string, error) {
	f.calls++
	f.prompt = prompt
	f.apiKey = apiKey
	return f.out, f.err
}

var fullCreds = Credentials{GenerationKey: "sk", MetadataKey: "es"}

func TestGenerateWithSuppliedABI(t *testing.T) {
	res := &fakeResolver{}
	comp := &fakeCompleter{out: "# Doc"}
	svc := NewService(Credentials{GenerationKey: "sk"}, res, comp, nil)

	doc, err := svc.Generate(context.Background(), types.Request{
		ContractAddress: "0xabc",
		ABI:             json.RawMessage(`[{"type":"function","name":"ping"}]`),
	})
	require.NoError(t, err)
	assert.Equal(t, "# Doc", doc.Markdown)
	assert.Equal(t, 0, res.calls)
	assert.Equal(t, 1, comp.calls)
	assert.Equal(t, "sk", comp.apiKey)
	assert.Contains(t, comp.prompt, "- Function Name: `ping`")
	assert.Contains(t, comp.prompt, "address 0xabc")
}

func TestGenerateFetchesABI(t *testing.T) {
	res := &fakeResolver{abi: json.RawMessage(`[{"type":"function","name":"owner","outputs":[{"type":"address"}]}]`)}
	comp := &fakeCompleter{out: "ok"}
	svc := NewService(fullCreds, res, comp, nil)

	_, err := svc.Generate(context.Background(), types.Request{ContractAddress: "0xabc"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.calls)
	assert.Contains(t, comp.prompt, "    - `address`\n")
}

func TestGenerateMissingGenerationKey(t *testing.T) {
	res := &fakeResolver{}
	comp := &fakeCompleter{}
	svc := NewService(Credentials{MetadataKey: "es"}, res, comp, nil)

	_, err := svc.Generate(context.Background(), types.Request{ContractAddress: "0xabc", ABI: json.RawMessage(`[]`)})
	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.ErrorIs(t, err, ErrMissingGenerationKey)
	assert.Equal(t, "CLAUDE_API_KEY environment variable not set", err.Error())
	assert.Zero(t, res.calls)
	assert.Zero(t, comp.calls)
}

func TestGenerateMissingMetadataKeyOnlyWhenNeeded(t *testing.T) {
	res := &fakeResolver{}
	comp := &fakeCompleter{out: "ok"}
	svc := NewService(Credentials{GenerationKey: "sk"}, res, comp, nil)

	_, err := svc.Generate(context.Background(), types.Request{ContractAddress: "0xabc"})
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.Equal(t, "ETHERSCAN_API_KEY environment variable not set", err.Error())
	assert.Zero(t, res.calls)

	_, err = svc.Generate(context.Background(), types.Request{ContractAddress: "0xabc", ABI: json.RawMessage(`[]`)})
	assert.NoError(t, err)
}

func TestGenerateMetadataFailure(t *testing.T) {
	res := &fakeResolver{err: errors.New("rate limited")}
	comp := &fakeCompleter{}
	svc := NewService(fullCreds, res, comp, nil)

	_, err := svc.Generate(context.Background(), types.Request{ContractAddress: "0xabc"})
	assert.Equal(t, KindMetadata, KindOf(err))
	assert.Equal(t, "Error fetching ABI: rate limited", err.Error())
	assert.Zero(t, comp.calls)
}

func TestGenerateGenerationFailure(t *testing.T) {
	res := &fakeResolver{}
	comp := &fakeCompleter{err: errors.New("Claude API returned error status 429 Too Many Requests: {}")}
	svc := NewService(fullCreds, res, comp, nil)

	_, err := svc.Generate(context.Background(), types.Request{ContractAddress: "0xabc", ABI: json.RawMessage(`[]`)})
	assert.Equal(t, KindGeneration, KindOf(err))
	assert.True(t, strings.HasPrefix(err.Error(), "Error: Claude API returned error status 429"))
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(errors.New("x")))
	assert.Equal(t, "unknown", Kind(0).String())
	assert.Equal(t, "metadata", KindMetadata.String())
}
