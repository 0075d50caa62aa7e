package entity

import "fmt"

// SoftwareRecord is one extracted software line item. Every field is a string and
// defaults to "", including counts and costs: scanned values may be illegible.
type SoftwareRecord struct {
	District            string `json:"district"`
	SchoolName          string `json:"school_name"`
	ApproxLevel         string `json:"approx_level"`
	Software            string `json:"software"`
	Vendor              string `json:"vendor"`
	UseType             string `json:"use_type"`
	HostType            string `json:"host_type"`
	NumSchoolLic        string `json:"num_school_lic"`
	NumDistrictLic      string `json:"num_district_lic"`
	CostPerLic          string `json:"cost_per_lic"`
	CostTotal           string `json:"cost_total"`
	ContractStartMonth  string `json:"contract_start_month"`
	ContractStartYear   string `json:"contract_start_year"`
	ContractLengthYears string `json:"contract_length_years"`
	InstallMonth        string `json:"install_month"`
	InstallYear         string `json:"install_year"`
	QuoteMonth          string `json:"quote_month"`
	QuoteYear           string `json:"quote_year"`
	MiscNotes           string `json:"misc_notes"`
	Round               string `json:"round"`
	SourceFile          string `json:"source_file"`
	PageNumber          string `json:"page_number"`
}

// RecordColumns is the fixed column order of the detailed-records table.
var RecordColumns = []string{
	"District", "School_Name", "Approx_Level", "Software", "Vendor",
	"Use_Type", "Host_Type", "Num_School_LIC", "Num_District_LIC",
	"Cost_per_LIC", "Cost_total", "Contract_StartMonth", "Contract_StartYear",
	"Contract_Length_Years", "Install_Month", "Install_Year",
	"Quote_Month", "Quote_Year", "Misc_Notes", "Round",
	"Source_File", "Page_Number",
}

// Row returns the record's cells in RecordColumns order.
func (r SoftwareRecord) Row() []string {
	return []string{
		r.District, r.SchoolName, r.ApproxLevel, r.Software, r.Vendor,
		r.UseType, r.HostType, r.NumSchoolLic, r.NumDistrictLic,
		r.CostPerLic, r.CostTotal, r.ContractStartMonth, r.ContractStartYear,
		r.ContractLengthYears, r.InstallMonth, r.InstallYear,
		r.QuoteMonth, r.QuoteYear, r.MiscNotes, r.Round,
		r.SourceFile, r.PageNumber,
	}
}

// RecordFromRow rebuilds a record from a table row. header maps column names to
// positions; missing columns stay empty.
func RecordFromRow(header map[string]int, row []string) SoftwareRecord {
	get := func(col string) string {
		i, ok := header[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	return SoftwareRecord{
		District:            get("District"),
		SchoolName:          get("School_Name"),
		ApproxLevel:         get("Approx_Level"),
		Software:            get("Software"),
		Vendor:              get("Vendor"),
		UseType:             get("Use_Type"),
		HostType:            get("Host_Type"),
		NumSchoolLic:        get("Num_School_LIC"),
		NumDistrictLic:      get("Num_District_LIC"),
		CostPerLic:          get("Cost_per_LIC"),
		CostTotal:           get("Cost_total"),
		ContractStartMonth:  get("Contract_StartMonth"),
		ContractStartYear:   get("Contract_StartYear"),
		ContractLengthYears: get("Contract_Length_Years"),
		InstallMonth:        get("Install_Month"),
		InstallYear:         get("Install_Year"),
		QuoteMonth:          get("Quote_Month"),
		QuoteYear:           get("Quote_Year"),
		MiscNotes:           get("Misc_Notes"),
		Round:               get("Round"),
		SourceFile:          get("Source_File"),
		PageNumber:          get("Page_Number"),
	}
}

// String is used in log lines.
func (r SoftwareRecord) String() string {
	return fmt.Sprintf("%s/%s p%s: %s (%s)", r.District, r.Round, r.PageNumber, r.Software, r.Vendor)
}
