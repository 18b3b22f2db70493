package vc

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"claimchain/contracts/credential"
)

// treatmentSchema constrains the parts of a treatment credential the engine
// denormalizes. Anything else in the document is ignored.
const treatmentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["credentialSubject"],
  "properties": {
    "credentialSubject": {
      "type": "object",
      "properties": {
        "treatmentDescription": {"type": "string"},
        "billAmount": {"type": ["string", "number"]}
      }
    }
  }
}`

var compiledTreatmentSchema = jsonschema.MustCompileString("treatment.json", treatmentSchema)

// TreatmentSummary carries the fields denormalized into outcome credentials.
// Absent or unparseable values degrade to the N/A sentinel.
type TreatmentSummary struct {
	Description string
	BillAmount  string
}

// DegradedTreatmentSummary is used when the treatment credential could not be
// fetched, parsed, or validated.
func DegradedTreatmentSummary() TreatmentSummary {
	return TreatmentSummary{
		Description: credential.NotAvailable,
		BillAmount:  credential.NotAvailable,
	}
}

// ParseTreatmentSummary extracts the denormalized treatment fields from the
// raw bytes of a treatment credential. Any failure yields the degraded
// summary and an error for logging; adjudication proceeds either way.
func ParseTreatmentSummary(raw []byte) (TreatmentSummary, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return DegradedTreatmentSummary(), err
	}
	if err := compiledTreatmentSchema.Validate(doc); err != nil {
		return DegradedTreatmentSummary(), err
	}

	summary := DegradedTreatmentSummary()
	obj, ok := doc.(map[string]any)
	if !ok {
		return summary, nil
	}
	subject, ok := obj["credentialSubject"].(map[string]any)
	if !ok {
		return summary, nil
	}
	if desc, ok := subject["treatmentDescription"].(string); ok && strings.TrimSpace(desc) != "" {
		summary.Description = desc
	}
	switch bill := subject["billAmount"].(type) {
	case string:
		if strings.TrimSpace(bill) != "" {
			summary.BillAmount = bill
		}
	case json.Number:
		summary.BillAmount = bill.String()
	case float64:
		// Numbers survive as their JSON text to avoid float formatting drift.
		b, _ := json.Marshal(bill)
		summary.BillAmount = string(b)
	}
	return summary, nil
}
