package indexer

import (
	"fmt"

	vgrerrors "github.com/vectorgrep/vgrep/internal/errors"
)

// The Index pipeline's failure kinds, per the error-handling contract: each
// names whether it aborts the run or is logged and skipped.

// ErrScanFailure means the root couldn't be walked at all (unreadable root,
// symlink cycle). Fatal: the run aborts before touching any state.
func ErrScanFailure(cause error) *vgrerrors.CodedError {
	return vgrerrors.IOError("failed to scan project root", cause)
}

// ErrFileRead means one file's content couldn't be read during hashing or
// chunking. Not fatal: the file is skipped and treated as absent for this
// run; the caller logs it to the progress sink and continues.
func ErrFileRead(path string, cause error) *vgrerrors.CodedError {
	return vgrerrors.IOError(fmt.Sprintf("failed to read %s", path), cause)
}

// ErrParse means a file's content was read but could not be chunked. Same
// policy as ErrFileRead: skipped, not fatal.
func ErrParse(path string, cause error) *vgrerrors.CodedError {
	return vgrerrors.New(vgrerrors.ErrCodeChunkingFailed, fmt.Sprintf("failed to chunk %s", path), cause)
}

// ErrEmbeddingProvider means a batch embed call failed. Fatal: the run
// aborts before any vector-store mutation the failing batch was destined
// for. The previously committed Merkle summary is left untouched, so the
// next run retries the same work.
func ErrEmbeddingProvider(cause error) *vgrerrors.CodedError {
	return vgrerrors.New(vgrerrors.ErrCodeEmbeddingFailed, "embedding provider call failed", cause)
}

// ErrVectorStore wraps a vector-store failure; op names the operation that
// failed ("delete", "upsert", ...). Two policies apply: a delete failure is
// always fatal (proceeding would leave stale records for modified files);
// an upsert failure is fatal too, but leaves a different recovery path —
// the Merkle summary must not be written so the next run redoes the work.
func ErrVectorStore(op string, cause error) *vgrerrors.CodedError {
	return vgrerrors.New(vgrerrors.ErrCodeVectorStore, fmt.Sprintf("vector store %s failed", op), cause)
}

// ErrCachePersist means the embedding cache couldn't be saved to disk.
// Not fatal: the cache is a performance optimization, and the Merkle
// summary may still be written since upserts already succeeded — worst
// case the next run redoes embedding for what didn't get cached.
func ErrCachePersist(cause error) *vgrerrors.CodedError {
	return vgrerrors.New(vgrerrors.ErrCodeCachePersist, "failed to persist embedding cache", cause)
}
