package models

// ResultCode is the machine-readable reason a record produced no barcode.
type ResultCode string

const (
	ResultNoRecords               ResultCode = "NO_RECORDS"
	ResultInvalidSubject          ResultCode = "INVALID_SUBJECT"
	ResultInvalidRecord           ResultCode = "INVALID_RECORD"
	ResultInvalidLocation         ResultCode = "INVALID_LOCATION"
	ResultMappingError            ResultCode = "MAPPING_ERROR"
	ResultBarcodeGenerationFailed ResultCode = "BARCODE_GENERATION_FAILED"
)

// ResultError is the structured error attached to a failed BarcodeResult.
type ResultError struct {
	Code    ResultCode `json:"code"`
	Message string     `json:"message"`
}

// BarcodeResult is the outcome for one input record. Exactly one of Barcode
// and Error is set.
type BarcodeResult struct {
	RecordID   string       `json:"record_id"`
	CanProvide bool         `json:"can_provide"`
	Barcode    string       `json:"barcode,omitempty"`
	Error      *ResultError `json:"error,omitempty"`
}

// Success builds a result carrying an encoded barcode.
func Success(recordID, barcode string) BarcodeResult {
	return BarcodeResult{RecordID: recordID, CanProvide: true, Barcode: barcode}
}

// Failure builds a result carrying a structured error.
func Failure(recordID string, code ResultCode, message string) BarcodeResult {
	return BarcodeResult{
		RecordID: recordID,
		Error:    &ResultError{Code: code, Message: message},
	}
}

// Failed reports whether the result carries an error.
func (r BarcodeResult) Failed() bool {
	return r.Error != nil
}
