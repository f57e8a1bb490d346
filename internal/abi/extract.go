// Package abi turns a contract interface description into normalized
// function summaries.
package abi

import (
	"encoding/json"

	"github.com/yourorg/clearsign/internal/jsonx"
	"github.com/yourorg/clearsign/pkg/types"
)

const kindFunction = "function"

// ExtractFunctions returns one summary per "function" entry of description,
// in entry order. Keys match exactly. Missing or malformed fields fall back to
// empty values and a description that is not a JSON array yields no
// functions. It never fails.
func ExtractFunctions(description json.RawMessage) []types.FunctionSummary {
	var entries jsonx.List[jsonx.Object]
	_ = jsonx.Decode(description, &entries)

	functions := make([]types.FunctionSummary, 0, len(entries))
	for _, e := range entries {
		kind := e.String("type")
		if !kind.Valid || kind.Value != kindFunction {
			continue
		}
		inputs := jsonx.Field[jsonx.List[jsonx.Object]](e, "inputs")
		params := make([]types.Parameter, 0, len(inputs))
		for _, in := range inputs {
			params = append(params, types.Parameter{
				Type: in.String("type").Value,
				Name: in.String("name").Value,
			})
		}
		outputs := jsonx.Field[jsonx.List[jsonx.Object]](e, "outputs")
		returns := make([]string, 0, len(outputs))
		for _, out := range outputs {
			returns = append(returns, out.String("type").Value)
		}
		functions = append(functions, types.FunctionSummary{
			Name:        e.String("name").Value,
			Parameters:  params,
			ReturnTypes: returns,
		})
	}
	return functions
}
