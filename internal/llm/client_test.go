package llm

import (
	"testing"
)

type shape struct {
	Result   string `json:"result"`
	LoanType string `json:"loan_type"`
}

func TestDecodeStructuredStrict(t *testing.T) {
	t.Parallel()
	var v shape
	if err := DecodeStructured(`{"result":"ok","loan_type":"home"}`, &v); err != nil {
		t.Fatalf("strict decode failed: %v", err)
	}
	if v.Result != "ok" || v.LoanType != "home" {
		t.Errorf("decoded %+v", v)
	}
}

func TestDecodeStructuredRepairsSloppyOutput(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
	}{
		{"code fence", "```json\n{\"result\": \"ok\", \"loan_type\": \"car\"}\n```"},
		{"trailing comma", `{"result": "ok", "loan_type": "car",}`},
		{"single quotes", `{'result': 'ok', 'loan_type': 'car'}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var v shape
			if err := DecodeStructured(tc.raw, &v); err != nil {
				t.Fatalf("repair decode failed: %v", err)
			}
			if v.Result != "ok" {
				t.Errorf("result = %q", v.Result)
			}
		})
	}
}

func TestDecodeStructuredRejectsProse(t *testing.T) {
	t.Parallel()
	var v shape
	if err := DecodeStructured("I am sorry, I cannot answer that.", &v); err == nil {
		t.Error("expected error for non-JSON prose")
	}
}
