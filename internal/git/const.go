package git

// Missing is the all-zero object id. As the old value of a ref update it
// means the ref must not exist yet.
const Missing = "0000000000000000000000000000000000000000"

// Object types as reported by cat-file.
const (
	TypeCommit = "commit"
	TypeBlob   = "blob"
)
