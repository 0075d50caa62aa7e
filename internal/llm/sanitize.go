package llm

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/procurement-extractor/constants"
	"github.com/joseph-ayodele/procurement-extractor/internal/entity"
)

// MismatchNote is appended to misc_notes when the contract year implies a
// different round than the folder the PDF came from.
const MismatchNote = "[Year-Round mismatch noted]"

// recordKeys are the model keys ToRecord understands.
var recordKeys = map[string]struct{}{
	"software": {}, "vendor": {}, "school_name": {}, "approx_level": {},
	"use_type": {}, "host_type": {}, "num_school_lic": {}, "num_district_lic": {},
	"cost_per_lic": {}, "cost_total": {}, "contract_start_month": {},
	"contract_start_year": {}, "contract_length_years": {}, "install_month": {},
	"install_year": {}, "quote_month": {}, "quote_year": {}, "misc_notes": {},
}

// ToRecord converts one recovered object into a strict SoftwareRecord.
// - Unknown keys are dropped and returned for logging
// - null becomes "", numbers and bools are stringified
// - Level/use/host values are canonicalized when recognized, kept verbatim otherwise
// - A contract year that belongs to another round appends MismatchNote
func ToRecord(obj map[string]any, req PageRequest) (entity.SoftwareRecord, []string) {
	var dropped []string
	for k := range obj {
		if _, ok := recordKeys[k]; !ok {
			dropped = append(dropped, k)
		}
	}
	slices.Sort(dropped)

	get := func(k string) string { return stringify(obj[k]) }

	rec := entity.SoftwareRecord{
		District:            req.District,
		SchoolName:          get("school_name"),
		ApproxLevel:         canonical(constants.CanonicalLevel, get("approx_level")),
		Software:            get("software"),
		Vendor:              get("vendor"),
		UseType:             canonical(constants.CanonicalUseType, get("use_type")),
		HostType:            canonical(constants.CanonicalHostType, get("host_type")),
		NumSchoolLic:        get("num_school_lic"),
		NumDistrictLic:      get("num_district_lic"),
		CostPerLic:          get("cost_per_lic"),
		CostTotal:           get("cost_total"),
		ContractStartMonth:  get("contract_start_month"),
		ContractStartYear:   get("contract_start_year"),
		ContractLengthYears: get("contract_length_years"),
		InstallMonth:        get("install_month"),
		InstallYear:         get("install_year"),
		QuoteMonth:          get("quote_month"),
		QuoteYear:           get("quote_year"),
		MiscNotes:           get("misc_notes"),
		Round:               req.Round,
		SourceFile:          req.Filename,
		PageNumber:          strconv.Itoa(req.PageNumber()),
	}

	if YearRoundMismatch(req.Round, rec.ContractStartYear) {
		rec.MiscNotes = strings.TrimSpace(rec.MiscNotes + " " + MismatchNote)
	}
	return rec, dropped
}

// YearRoundMismatch reports whether year maps to a known round other than round.
// Missing data is never a mismatch.
func YearRoundMismatch(round, year string) bool {
	if round == "" || year == "" {
		return false
	}
	expected, ok := constants.ExpectedRoundForYear(year)
	return ok && expected != round
}

func canonical(fn func(string) (string, bool), v string) string {
	c, ok := fn(v)
	if !ok {
		return strings.TrimSpace(v)
	}
	return c
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
