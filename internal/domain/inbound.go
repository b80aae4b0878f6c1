package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Payload is a decoded webhook body. Field names vary between deliveries.
type Payload map[string]any

func DecodePayload(raw []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: body is not valid json", ErrInvalidInput)
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: body must be a json object", ErrInvalidInput)
	}
	return Payload(obj), nil
}

// FoldKey lowercases, strips accents and drops everything that is not a
// letter or digit, so "Ano do Veículo", "ano_do_veiculo" and "anoDoVeiculo"
// compare equal.
func FoldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Extractor pulls one logical field out of a payload, returning "" when absent.
type Extractor func(Payload) string

// FirstOf returns the first non-empty result.
func FirstOf(extractors ...Extractor) Extractor {
	return func(p Payload) string {
		for _, extract := range extractors {
			if v := extract(p); v != "" {
				return v
			}
		}
		return ""
	}
}

// Path walks nested objects, matching each key with FoldKey.
func Path(keys ...string) Extractor {
	folded := make([]string, len(keys))
	for i, k := range keys {
		folded[i] = FoldKey(k)
	}
	return func(p Payload) string {
		var cur any = map[string]any(p)
		for _, key := range folded {
			obj, ok := cur.(map[string]any)
			if !ok {
				return ""
			}
			cur, ok = lookupFolded(obj, key)
			if !ok {
				return ""
			}
		}
		return scalarString(cur)
	}
}

// Join concatenates the non-empty results with sep.
func Join(sep string, parts ...Extractor) Extractor {
	return func(p Payload) string {
		values := make([]string, 0, len(parts))
		for _, extract := range parts {
			if v := extract(p); v != "" {
				values = append(values, v)
			}
		}
		return strings.Join(values, sep)
	}
}

// CustomField searches custom-field arrays shaped like
// [{"key": "ano_veiculo", "value": "2020"}] at the root and under contact.
func CustomField(names ...string) Extractor {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[FoldKey(n)] = struct{}{}
	}
	return func(p Payload) string {
		containers := []any{map[string]any(p)}
		if contact, ok := lookupFolded(p, "contact"); ok {
			containers = append(containers, contact)
		}
		for _, container := range containers {
			obj, ok := container.(map[string]any)
			if !ok {
				continue
			}
			for _, listKey := range []string{"customfields", "customfield"} {
				list, ok := lookupFolded(obj, listKey)
				if !ok {
					continue
				}
				items, ok := list.([]any)
				if !ok {
					continue
				}
				for _, item := range items {
					if v := customFieldValue(item, wanted); v != "" {
						return v
					}
				}
			}
		}
		return ""
	}
}

func customFieldValue(item any, wanted map[string]struct{}) string {
	field, ok := item.(map[string]any)
	if !ok {
		return ""
	}
	matched := false
	for _, nameKey := range []string{"key", "fieldkey", "name", "id"} {
		if name, ok := lookupFolded(field, nameKey); ok {
			if _, hit := wanted[FoldKey(scalarString(name))]; hit {
				matched = true
				break
			}
		}
	}
	if !matched {
		return ""
	}
	for _, valueKey := range []string{"value", "fieldvalue"} {
		if v, ok := lookupFolded(field, valueKey); ok {
			if s := scalarString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func lookupFolded(obj map[string]any, folded string) (any, bool) {
	if v, ok := obj[folded]; ok && !isEmptyValue(v) {
		return v, true
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if FoldKey(k) != folded {
			continue
		}
		if v := obj[k]; !isEmptyValue(v) {
			return v, true
		}
	}
	return nil, false
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

var (
	externalIDChain = FirstOf(
		Path("appointmentId"),
		Path("appointment", "id"),
		Path("calendar", "appointmentId"),
		Path("id"),
		Path("contact_id"),
		Path("contact", "id"),
	)
	startTimeChain = FirstOf(
		Path("calendar", "startTime"),
		Path("appointment", "startTime"),
		Path("startTime"),
		Path("appointment", "start"),
		Path("scheduledAt"),
	)
	statusChain = FirstOf(
		Path("calendar", "appoinmentStatus"),
		Path("calendar", "appointmentStatus"),
		Path("calendar", "status"),
		Path("appointment", "status"),
		Path("appointmentStatus"),
		Path("status"),
	)
	customerNameChain = FirstOf(
		Path("contact", "name"),
		Path("contact", "fullName"),
		Path("fullName"),
		Join(" ", Path("contact", "firstName"), Path("contact", "lastName")),
		Join(" ", Path("firstName"), Path("lastName")),
		Path("customerName"),
	)
	customerPhoneChain = FirstOf(
		Path("contact", "phone"),
		Path("phone"),
		Path("customerPhone"),
	)
	vehicleModelChain = FirstOf(
		Path("contact", "marca_e_modelo_do_veiculo"),
		Path("marca_e_modelo_do_veiculo"),
		Path("contact", "marca_e_modelo_do_veculo"),
		Path("marca_e_modelo_do_veculo"),
		Path("contact", "customFields", "modelo_veiculo"),
		Path("customData", "modelo_veiculo"),
		CustomField("modelo_veiculo", "marca_e_modelo_do_veiculo", "vehicle_model"),
		Path("vehicleModel"),
	)
	vehicleYearChain = FirstOf(
		Path("contact", "ano_do_veiculo"),
		Path("ano_do_veiculo"),
		Path("contact", "ano_do_veculo"),
		Path("ano_do_veculo"),
		Path("contact", "customFields", "ano_veiculo"),
		Path("customData", "ano_veiculo"),
		CustomField("ano_veiculo", "ano_do_veiculo", "vehicle_year"),
		Path("vehicleYear"),
	)
	calendarLabelChain = FirstOf(
		Path("calendar", "calendarName"),
		Path("calendar", "name"),
		Path("calendarName"),
		Path("calendar", "title"),
		Path("location", "name"),
	)
)

// InboundFields is the raw text of every field a delivery can carry.
type InboundFields struct {
	ExternalID    string
	StartTime     string
	Status        string
	CustomerName  string
	CustomerPhone string
	VehicleModel  string
	VehicleYear   string
	CalendarLabel string
}

func ExtractInbound(p Payload) InboundFields {
	return InboundFields{
		ExternalID:    externalIDChain(p),
		StartTime:     startTimeChain(p),
		Status:        statusChain(p),
		CustomerName:  customerNameChain(p),
		CustomerPhone: customerPhoneChain(p),
		VehicleModel:  vehicleModelChain(p),
		VehicleYear:   vehicleYearChain(p),
		CalendarLabel: calendarLabelChain(p),
	}
}

// InboundResult is a resolved delivery plus anything worth a warning.
type InboundResult struct {
	Update WebhookUpdate
	// InvalidStartTime holds a start time that could not be parsed and was ignored.
	InvalidStartTime string
}

// ResolveWebhook turns a payload into a WebhookUpdate. statusOverride, when
// set, replaces the payload status.
func ResolveWebhook(p Payload, source, regionID, statusOverride, offset string) (InboundResult, error) {
	fields := ExtractInbound(p)
	if fields.ExternalID == "" {
		return InboundResult{}, ErrMissingIdentifier
	}
	rawStatus := fields.Status
	if strings.TrimSpace(statusOverride) != "" {
		rawStatus = statusOverride
	}
	res := InboundResult{Update: WebhookUpdate{
		Source:        source,
		ExternalID:    fields.ExternalID,
		RegionID:      regionID,
		CustomerName:  fields.CustomerName,
		CustomerPhone: fields.CustomerPhone,
		VehicleModel:  fields.VehicleModel,
		VehicleYear:   fields.VehicleYear,
		CalendarLabel: fields.CalendarLabel,
		Status:        ClassifyExternalStatus(rawStatus),
	}}
	if normalized := NormalizeTimestamp(fields.StartTime, offset); normalized != "" {
		at, err := ParseTimestamp(normalized)
		if err != nil {
			res.InvalidStartTime = fields.StartTime
		} else {
			res.Update.ScheduledAt = &at
		}
	}
	return res, nil
}
