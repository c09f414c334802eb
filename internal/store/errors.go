package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrUserNotFound is returned when the authenticated subject has no users
	// row, e.g. after the account was deleted by another request.
	ErrUserNotFound = errors.New("user was not found")

	// ErrDeviceNotFound is returned when a device does not exist or belongs
	// to another user.
	ErrDeviceNotFound = errors.New("device was not found")

	// ErrDeviceLimitReached is returned when registering one more device
	// would exceed the per-user maximum.
	ErrDeviceLimitReached = errors.New("device limit reached")

	// ErrRecordNotFound is returned by the local repository when a document
	// with the requested id does not exist.
	ErrRecordNotFound = errors.New("record was not found")

	// ErrMetaNotFound is returned when a sync_meta key has never been set.
	ErrMetaNotFound = errors.New("sync meta key was not found")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning column values from a single
	// result row fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails, typically mid-result-set.
	ErrScanningRows = errors.New("failed to scan rows")

	// ErrEncodingDocument is returned when a local document cannot be
	// serialized or deserialized.
	ErrEncodingDocument = errors.New("failed to encode document")
)
