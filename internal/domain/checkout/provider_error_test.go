package checkout_test

import (
	"encoding/json"
	"testing"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name string
		code any
		want string
	}{
		{"int", 400, "400"},
		{"int64", int64(2), "2"},
		{"float from JSON", float64(3), "3"},
		{"string", "BAD_REQUEST_ERROR", "BAD_REQUEST_ERROR"},
		{"json number", json.Number("7"), "7"},
		{"nil", nil, checkout.UnknownCode},
		{"empty string", "", checkout.UnknownCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkout.NormalizeCode(tt.code))
		})
	}
}

func TestParseProviderError_NestedObject(t *testing.T) {
	raw := `{"error":{"code":"BAD_REQUEST_ERROR","description":"Card declined","source":"bank","step":"payment_authorization","reason":"payment_failed"}}`

	perr := checkout.ParseProviderError(2, raw)

	assert.Equal(t, checkout.PaymentError{
		Code:        "2",
		Description: "Card declined",
		Source:      "bank",
		Step:        "payment_authorization",
		Reason:      "payment_failed",
	}, perr)
}

func TestParseProviderError_NestedJSONString(t *testing.T) {
	raw := `{"error":"{\"description\":\"Network issue\",\"reason\":\"network_error\"}"}`

	perr := checkout.ParseProviderError(0, raw)

	assert.Equal(t, "0", perr.Code)
	assert.Equal(t, "Network issue", perr.Description)
	assert.Equal(t, "network_error", perr.Reason)
	assert.Empty(t, perr.Source)
	assert.Empty(t, perr.Step)
}

func TestParseProviderError_MissingDescription(t *testing.T) {
	perr := checkout.ParseProviderError(5, `{"error":{"source":"customer"}}`)

	assert.Equal(t, checkout.DefaultFailureDescription, perr.Description)
	assert.Equal(t, "customer", perr.Source)
}

func TestParseProviderError_TopLevelFields(t *testing.T) {
	perr := checkout.ParseProviderError(3, `{"description":"Invalid options","step":"initialization"}`)

	assert.Equal(t, "Invalid options", perr.Description)
	assert.Equal(t, "initialization", perr.Step)
}

func TestParseProviderError_ErrorIsPlainString(t *testing.T) {
	perr := checkout.ParseProviderError(4, `{"error":"user aborted"}`)

	assert.Equal(t, "user aborted", perr.Description)
}

func TestParseProviderError_Malformed(t *testing.T) {
	perr := checkout.ParseProviderError(400, "not json")

	assert.Equal(t, checkout.PaymentError{Code: "400", Description: "not json"}, perr)
}

func TestParseProviderError_TruncatedJSON(t *testing.T) {
	perr := checkout.ParseProviderError(400, `{"error":{"description":"cut`)

	assert.Equal(t, "400", perr.Code)
	assert.Equal(t, `{"error":{"description":"cut`, perr.Description)
}

func TestParseProviderError_EmptyAndNil(t *testing.T) {
	for _, raw := range []any{nil, "", "   ", []byte(nil)} {
		perr := checkout.ParseProviderError(1, raw)
		assert.Equal(t, checkout.DefaultFailureDescription, perr.Description)
		assert.Equal(t, "1", perr.Code)
	}
}

func TestParseProviderError_DecodedMap(t *testing.T) {
	raw := map[string]any{"error": map[string]any{"description": "Declined", "metadata": map[string]any{"payment_id": "pay_1"}}}

	perr := checkout.ParseProviderError("E1", raw)

	assert.Equal(t, "E1", perr.Code)
	assert.Equal(t, "Declined", perr.Description)
}

func TestParseProviderError_RawMessage(t *testing.T) {
	obj := checkout.ParseProviderError(2, json.RawMessage(`{"error":{"description":"Declined"}}`))
	assert.Equal(t, "Declined", obj.Description)

	str := checkout.ParseProviderError(2, json.RawMessage(`"plain text"`))
	assert.Equal(t, "plain text", str.Description)
}

func TestParseProviderError_CodeFromPayloadWhenMissing(t *testing.T) {
	perr := checkout.ParseProviderError(nil, `{"error":{"code":"GATEWAY_ERROR","description":"Down"}}`)

	assert.Equal(t, "GATEWAY_ERROR", perr.Code)
}

func TestParseProviderError_NonStringFields(t *testing.T) {
	perr := checkout.ParseProviderError(9, `{"error":{"description":42,"source":["a"],"step":null}}`)

	assert.Equal(t, "42", perr.Description)
	assert.Empty(t, perr.Source)
	assert.Empty(t, perr.Step)
}

func TestParseProviderError_ScalarRaw(t *testing.T) {
	perr := checkout.ParseProviderError(9, 12345)

	assert.Equal(t, "12345", perr.Description)
}
