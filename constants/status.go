package constants

// PDFStatus is the outcome of one PDF within a run; it appears in logs and run results.
type PDFStatus string

const (
	PDFStatusDone        PDFStatus = "DONE"        // every page attempted, marked processed
	PDFStatusSkipped     PDFStatus = "SKIPPED"     // already in the processed set
	PDFStatusUnreadable  PDFStatus = "UNREADABLE"  // page count failed; not marked, retried next run
	PDFStatusInterrupted PDFStatus = "INTERRUPTED" // run cancelled mid-file; not marked
)
