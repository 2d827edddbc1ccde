package models

import "strings"

type PaymentMethod string

const (
	MethodPix     PaymentMethod = "pix"
	MethodTed     PaymentMethod = "ted"
	MethodBoleto  PaymentMethod = "boleto"
	MethodCard    PaymentMethod = "card"
	MethodUnknown PaymentMethod = "unknown"
)

// PaymentMetadata is the typed view over the aggregator's loosely-typed
// paymentData blob. Unknown methods keep only the raw payload.
type PaymentMetadata struct {
	Method       PaymentMethod
	PayerName    string
	ReceiverName string
	Reason       string
	Raw          JSONB
}

// PaymentMetadataFromRaw maps a raw paymentData payload onto the known
// payment methods, falling back to MethodUnknown.
func PaymentMetadataFromRaw(raw JSONB) PaymentMetadata {
	meta := PaymentMetadata{Method: MethodUnknown, Raw: raw}
	if raw == nil {
		return meta
	}

	switch strings.ToLower(stringField(raw, "paymentMethod")) {
	case "pix":
		meta.Method = MethodPix
	case "ted":
		meta.Method = MethodTed
	case "boleto":
		meta.Method = MethodBoleto
	case "card", "credit_card":
		meta.Method = MethodCard
	}

	meta.PayerName = nestedName(raw, "payer")
	meta.ReceiverName = nestedName(raw, "receiver")
	meta.Reason = stringField(raw, "reason")
	return meta
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func nestedName(m JSONB, key string) string {
	nested, ok := m[key].(map[string]interface{})
	if !ok {
		return ""
	}
	return stringField(nested, "name")
}
