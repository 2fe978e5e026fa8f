package redemption

const (
	operationQuota    = "quota"
	operationCheckout = "checkout"
	operationHistory  = "history"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	subjectTransaction = "transaction"
	subjectQuota       = "quota"
	subjectHistory     = "history"

	codeEmpty             = "empty"
	codeDuplicateCategory = "duplicate_category"
	codeUnknownCategory   = "unknown_category"
	codeNoQuota           = "no_quota"
	codeFetch             = "fetch"
	codeSubmit            = "submit"
	codePersist           = "persist"
	codeUnavailable       = "unavailable"
)
