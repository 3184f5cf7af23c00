package normalize

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Kind identifies the alias table used to normalize one resource's records.
type Kind string

const (
	KindMerchant     Kind = "merchant"
	KindBankAccount  Kind = "bankAccount"
	KindDisbursement Kind = "disbursement"
	KindUser         Kind = "user"
	KindGateway      Kind = "gateway"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindStatus
	kindMethods
	kindStringList
	kindRaw
)

// fieldSpec declares one normalized field: the target name, the source aliases
// tried in priority order, and the default used when no alias yields a value.
// The target name leads its own alias list so re-mapping an already-normalized
// record is a no-op.
type fieldSpec struct {
	target  string
	aliases []string
	kind    valueKind
	def     any
}

var fieldTables = map[Kind][]fieldSpec{
	KindMerchant: {
		{target: "id", aliases: []string{"id"}, kind: kindRaw, def: nil},
		{target: "uid", aliases: []string{"uid", "merchantUid", "merchant_uid"}, kind: kindString, def: ""},
		{target: "code", aliases: []string{"code", "merchantCode", "merchant_code"}, kind: kindString, def: ""},
		{target: "name", aliases: []string{"name", "merchantName", "merchant_name", "businessName", "business_name"}, kind: kindString, def: ""},
		{target: "email", aliases: []string{"email", "contactEmail", "contact_email"}, kind: kindString, def: ""},
		{target: "phone", aliases: []string{"phone", "phoneNumber", "phone_number", "msisdn"}, kind: kindString, def: ""},
		{target: "country", aliases: []string{"country", "countryCode", "country_code"}, kind: kindString, def: ""},
		{target: "status", aliases: []string{"status", "state", "merchantStatus", "active", "isActive", "is_active", "enabled"}, kind: kindStatus, def: ""},
		{target: "supportedMethods", aliases: []string{"supportedMethods", "supported_methods", "paymentMethods", "payment_methods"}, kind: kindMethods, def: []string{}},
		{target: "createdAt", aliases: []string{"createdAt", "created_at", "dateCreated", "date_created"}, kind: kindString, def: ""},
	},
	KindBankAccount: {
		{target: "id", aliases: []string{"id"}, kind: kindRaw, def: nil},
		{target: "bankName", aliases: []string{"bankName", "bank_name", "bank"}, kind: kindString, def: ""},
		{target: "bankCode", aliases: []string{"bankCode", "bank_code"}, kind: kindString, def: ""},
		{target: "accountNumber", aliases: []string{"accountNumber", "account_number", "accountNo", "account_no"}, kind: kindString, def: ""},
		{target: "accountName", aliases: []string{"accountName", "account_name", "holderName", "holder_name"}, kind: kindString, def: ""},
		{target: "branchCode", aliases: []string{"branchCode", "branch_code"}, kind: kindString, def: ""},
		{target: "currency", aliases: []string{"currency", "currencyCode", "currency_code"}, kind: kindString, def: ""},
		{target: "primary", aliases: []string{"primary", "isPrimary", "is_primary", "default"}, kind: kindBool, def: false},
	},
	KindDisbursement: {
		{target: "id", aliases: []string{"id"}, kind: kindRaw, def: nil},
		{target: "reference", aliases: []string{"reference", "disbursementRef", "disbursement_ref", "ref"}, kind: kindString, def: ""},
		{target: "merchantCode", aliases: []string{"merchantCode", "merchant_code"}, kind: kindString, def: ""},
		{target: "amount", aliases: []string{"amount", "disbursementAmount", "disbursement_amount"}, kind: kindFloat, def: float64(0)},
		{target: "currency", aliases: []string{"currency", "currencyCode", "currency_code"}, kind: kindString, def: ""},
		{target: "channel", aliases: []string{"channel", "paymentChannel", "payment_channel"}, kind: kindString, def: ""},
		{target: "recipientAccount", aliases: []string{"recipientAccount", "recipient_account", "beneficiaryAccount", "beneficiary_account"}, kind: kindString, def: ""},
		{target: "recipientName", aliases: []string{"recipientName", "recipient_name", "beneficiaryName", "beneficiary_name"}, kind: kindString, def: ""},
		{target: "status", aliases: []string{"status", "state", "disbursementStatus"}, kind: kindStatus, def: ""},
		{target: "createdAt", aliases: []string{"createdAt", "created_at", "dateCreated", "date_created"}, kind: kindString, def: ""},
		{target: "processedAt", aliases: []string{"processedAt", "processed_at", "completedAt", "completed_at"}, kind: kindString, def: ""},
	},
	KindUser: {
		{target: "id", aliases: []string{"id"}, kind: kindRaw, def: nil},
		{target: "username", aliases: []string{"username", "userName", "user_name", "login"}, kind: kindString, def: ""},
		{target: "email", aliases: []string{"email", "emailAddress", "email_address"}, kind: kindString, def: ""},
		{target: "fullName", aliases: []string{"fullName", "full_name", "name", "displayName", "display_name"}, kind: kindString, def: ""},
		{target: "roles", aliases: []string{"roles", "authorities", "role"}, kind: kindStringList, def: []string{}},
		{target: "status", aliases: []string{"status", "state", "enabled", "active", "isActive"}, kind: kindStatus, def: ""},
		{target: "createdAt", aliases: []string{"createdAt", "created_at", "dateCreated", "date_created"}, kind: kindString, def: ""},
	},
	KindGateway: {
		{target: "id", aliases: []string{"id"}, kind: kindRaw, def: nil},
		{target: "code", aliases: []string{"code", "gatewayCode", "gateway_code"}, kind: kindString, def: ""},
		{target: "name", aliases: []string{"name", "gatewayName", "gateway_name", "provider"}, kind: kindString, def: ""},
		{target: "baseUrl", aliases: []string{"baseUrl", "base_url", "endpoint", "url"}, kind: kindString, def: ""},
		{target: "priority", aliases: []string{"priority", "sortOrder", "sort_order"}, kind: kindInt, def: 0},
		{target: "status", aliases: []string{"status", "state", "enabled", "active", "isActive"}, kind: kindStatus, def: ""},
		{target: "supportedMethods", aliases: []string{"supportedMethods", "supported_methods", "paymentMethods", "payment_methods"}, kind: kindMethods, def: []string{}},
	},
}

// MapFields applies a resource's alias table to an upstream record of unknown
// shape. Every target field is present in the output; a field absent after all
// aliases are tried gets its type-appropriate default, never an error.
// Unrecognized upstream fields are dropped.
func MapFields(kind Kind, record map[string]any) map[string]any {
	specs := fieldTables[kind]
	out := make(map[string]any, len(specs))
	for _, spec := range specs {
		out[spec.target] = resolveField(spec, record)
	}
	return out
}

func resolveField(spec fieldSpec, record map[string]any) any {
	for _, alias := range spec.aliases {
		raw, ok := record[alias]
		if !ok || raw == nil {
			continue
		}
		if value, ok := convertValue(spec.kind, raw); ok {
			return value
		}
	}
	return spec.def
}

func convertValue(kind valueKind, raw any) (any, bool) {
	switch kind {
	case kindRaw:
		return raw, true
	case kindString:
		s, ok := toString(raw)
		return s, ok
	case kindInt:
		n, ok := toInt(raw)
		return n, ok
	case kindFloat:
		f, ok := toFloat(raw)
		return f, ok
	case kindBool:
		switch v := raw.(type) {
		case bool:
			return v, true
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true":
				return true, true
			case "false":
				return false, true
			}
		}
		return false, false
	case kindStatus:
		return convertStatus(raw)
	case kindMethods:
		return ParseMethods(raw), true
	case kindStringList:
		if s, ok := raw.(string); ok {
			if strings.TrimSpace(s) == "" {
				return nil, false
			}
			return []string{s}, true
		}
		if list := toStringSlice(raw); list != nil {
			return list, true
		}
		return nil, false
	}
	return nil, false
}

// convertStatus normalizes the upstream's three ways of expressing a status:
// an explicit uppercase string ("ACTIVE"), a legacy enum-like string ("Active"),
// or a boolean flag. Strings are upper-cased; booleans map to ACTIVE/INACTIVE.
// The alias ordering in the field table puts string sources before boolean ones.
func convertStatus(raw any) (any, bool) {
	switch v := raw.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, false
		}
		return strings.ToUpper(trimmed), true
	case bool:
		if v {
			return "ACTIVE", true
		}
		return "INACTIVE", true
	}
	return nil, false
}

var quotedToken = regexp.MustCompile(`"([^"]+)"`)

// ParseMethods normalizes the "supported methods" field, which upstream delivers
// as a real array, a JSON-encoded array stored in a string, an array whose
// elements are themselves JSON-encoded arrays, or a bare delimiter-free string.
//
// For string input the three parse attempts are ordered and distinct: a full
// JSON-array decode, then extraction of quoted tokens, then wrapping the raw
// string as a single method. Which stage succeeds changes the result, so the
// stages must not be collapsed.
func ParseMethods(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return []string{}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := toString(item)
			if !ok {
				continue
			}
			// Elements like "[\"CARD\"]": a JSON array smuggled into each slot.
			if decoded, isArray := parseJSONStringArray(s); isArray {
				out = append(out, decoded...)
				continue
			}
			out = append(out, s)
		}
		return out
	case string:
		return parseMethodsString(v)
	}
	return []string{}
}

func parseMethodsString(s string) []string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return []string{}
	}
	if decoded, ok := parseJSONStringArray(trimmed); ok {
		return decoded
	}
	if matches := quotedToken.FindAllStringSubmatch(trimmed, -1); len(matches) > 0 {
		out := make([]string, 0, len(matches))
		for _, m := range matches {
			out = append(out, m[1])
		}
		return out
	}
	return []string{trimmed}
}

func parseJSONStringArray(s string) ([]string, bool) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[") {
		return nil, false
	}
	var arr []any
	if err := json.Unmarshal([]byte(trimmed), &arr); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if str, ok := toString(item); ok {
			out = append(out, str)
		}
	}
	return out, true
}
