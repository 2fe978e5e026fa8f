package supply

const (
	operationDecode   = "decode"
	operationValidate = "validate"

	subjectEnvVersion     = "env_version"
	subjectQuota          = "quota"
	subjectQuotaSummary   = "quota_summary"
	subjectCredentials    = "credentials"
	subjectTransaction    = "transaction"
	subjectTransactionSet = "transaction_result"
	subjectOTPRequest     = "otp_request"
	subjectIdentifier     = "identifier"

	codeMalformed        = "malformed"
	codeSchema           = "schema"
	codeInvariant        = "invariant"
	codeCategoryMismatch = "category_mismatch"
	codeQuantity         = "quantity"
	codeLimitExceeded    = "limit_exceeded"
	codeQuotaExceeded    = "quota_exceeded"
	codeMissingInput     = "missing_identifier"
	codeUnknownInput     = "unknown_identifier"
	codeDuplicateInput   = "duplicate_identifier"
	codeTypeMismatch     = "identifier_type_mismatch"
	codeFormat           = "format"

	identifierDisplaySeparator = ", "
	identifierLabelSeparator   = ": "
)
