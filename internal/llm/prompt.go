package llm

import (
	"fmt"
	"strings"
)

// includeRules and excludeRules scope what counts as "software" on a page.
var (
	includeRules = []string{
		"Educational software and applications",
		"Learning management systems",
		"Administrative software for schools",
		"Cloud-based educational services",
		"Software licenses and subscriptions",
		"Technology contracts and renewals",
		"Student information systems",
		"Assessment platforms",
		"Digital curriculum tools",
	}
	excludeRules = []string{
		"Physical hardware (computers, phones, printers)",
		"Non-technology services (maintenance, consulting)",
		"Office supplies and furniture",
	}
)

// fieldGuide lists every key the model must emit, in output order.
var fieldGuide = [][2]string{
	{"software", "Name of software/application/service"},
	{"vendor", "Company providing the software"},
	{"school_name", "Specific school if mentioned (leave empty if district-wide)"},
	{"approx_level", "PreK, Elementary, Middle, High, Multiple, or Alt (if specified)"},
	{"use_type", "Administrative or Instructional (if specified)"},
	{"host_type", "Cloud or Install (if specified)"},
	{"num_school_lic", "Number of school-specific licenses (numbers only)"},
	{"num_district_lic", "Number of district-wide licenses (numbers only)"},
	{"cost_per_lic", "Cost per license (numbers only, no $ symbols)"},
	{"cost_total", "Total cost (numbers only, no $ symbols)"},
	{"contract_start_month", "Month contract started (January, February, etc.)"},
	{"contract_start_year", "Year contract started (4-digit year)"},
	{"contract_length_years", "Contract length in years (numbers only)"},
	{"install_month", "Month software installed (January, February, etc.)"},
	{"install_year", "Year software installed (4-digit year)"},
	{"quote_month", "Month quote was given (January, February, etc.)"},
	{"quote_year", "Year quote was given (4-digit year)"},
	{"misc_notes", "Important details, renewal info, special terms, etc."},
}

const promptExample = `[
  {
    "software": "Microsoft Office 365",
    "vendor": "Microsoft Corporation",
    "school_name": "",
    "approx_level": "Multiple",
    "use_type": "Administrative",
    "host_type": "Cloud",
    "num_school_lic": "",
    "num_district_lic": "500",
    "cost_per_lic": "8.25",
    "cost_total": "4125.00",
    "contract_start_month": "July",
    "contract_start_year": "2019",
    "contract_length_years": "1",
    "install_month": "",
    "install_year": "",
    "quote_month": "June",
    "quote_year": "2019",
    "misc_notes": "Annual subscription renewal"
  }
]`

// BuildPagePrompt composes the single user instruction sent with a page image.
// The page text layer is truncated to textLimit characters (0 = no limit).
func BuildPagePrompt(req PageRequest, textLimit int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are analyzing a document from %s school district (Round %s, Page %d) to extract educational software information.\n\n",
		req.District, req.Round, req.PageNumber())
	fmt.Fprintf(&b, "Document: %s\n", req.Filename)
	fmt.Fprintf(&b, "Text content: %s...\n\n", truncateRunes(req.Text, textLimit))

	b.WriteString("TASK: Extract ALL educational software, applications, web-based services, and technology-related items from this document.\n\n")

	b.WriteString("INCLUDE these types of items:\n")
	for _, r := range includeRules {
		b.WriteString("- " + r + "\n")
	}
	b.WriteString("\nEXCLUDE these items:\n")
	for _, r := range excludeRules {
		b.WriteString("- " + r + "\n")
	}

	b.WriteString("\nFor each software item found, return a JSON object with these exact field names:\n\n{\n")
	for i, f := range fieldGuide {
		sep := ","
		if i == len(fieldGuide)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "  %q: %q%s\n", f[0], f[1], sep)
	}
	b.WriteString("}\n\n")

	rules := []string{
		"Extract each software item separately (don't combine multiple items)",
		"For tables/invoices, create one entry per line item",
		"Use only information clearly stated in the document",
		`Leave fields empty ("") if information is not available`,
		`For costs, extract only the numerical value (e.g., "1500.00" not "$1,500.00")`,
		"For dates, use full month names and 4-digit years",
		"Include renewal subscriptions and maintenance contracts",
		"If document lists software without details, still include it with available info",
	}
	b.WriteString("EXTRACTION RULES:\n")
	for i, r := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}

	b.WriteString("\nCRITICAL JSON FORMATTING REQUIREMENTS:\n")
	for _, r := range []string{
		"Return ONLY a valid JSON array of objects, no other text",
		"Ensure all strings are properly quoted and escaped",
		"Do not include trailing commas",
		"End all strings properly with closing quotes",
		"If no software is found, return []",
		"Validate JSON format before returning",
	} {
		b.WriteString("- " + r + "\n")
	}

	b.WriteString("\nReturn ONLY a valid JSON array of objects. If no software is found, return [].\n\nExample format:\n")
	b.WriteString(promptExample)
	b.WriteString("\n")
	return b.String()
}
