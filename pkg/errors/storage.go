package errors

// Storage error codes
const (
	// StorageErrConnection indicates a connection error
	StorageErrConnection = "STORAGE_CONNECTION"
	// StorageErrRead indicates a read error
	StorageErrRead = "STORAGE_READ"
	// StorageErrWrite indicates a write error
	StorageErrWrite = "STORAGE_WRITE"
	// StorageErrNotFound indicates a missing key
	StorageErrNotFound = "STORAGE_NOT_FOUND"
	// StorageErrSerialization indicates a value could not be encoded
	StorageErrSerialization = "STORAGE_SERIALIZATION"
	// StorageErrDeserialization indicates a stored value could not be decoded
	StorageErrDeserialization = "STORAGE_DESERIALIZATION"
)

// Storage domain name
const StorageDomain = "storage"

// Storage operations
const (
	OpConnect = "Connect"
	OpGet     = "Get"
	OpSet     = "Set"
	OpAll     = "All"
)

// NewStorageError creates a new storage error
func NewStorageError(code string, message string, err error) error {
	return &Error{
		Domain:   StorageDomain,
		Code:     code,
		Message:  message,
		Original: err,
	}
}

// StorageErrorf creates a new storage error with formatted message
func StorageErrorf(code string, format string, args ...interface{}) error {
	return &Error{
		Domain:  StorageDomain,
		Code:    code,
		Message: Sprintf(format, args...),
	}
}

// StorageWrap wraps an error with storage domain
func StorageWrap(err error, operation string, message string) error {
	if err == nil {
		return nil
	}

	return &Error{
		Domain:    StorageDomain,
		Operation: operation,
		Message:   message,
		Original:  err,
	}
}

// IsStorageError checks if an error is a storage error with the given code
func IsStorageError(err error, code string) bool {
	var domainErr *Error
	if As(err, &domainErr) {
		return domainErr.Domain == StorageDomain && domainErr.Code == code
	}
	return false
}
