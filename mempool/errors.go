package mempool

// Free-path diagnostic messages. Their prefixes are part of the public
// contract (spec.md §6): callers that scrape logs for these exact
// strings must keep working across releases.
const (
	msgOutOfPool        = "freed pointer is out of pool"
	msgMiddleOfBlock    = "freed pointer points to middle of block"
	msgAlreadyFreePage  = "freed pointer points to already free page"
	msgNonFreeablePage  = "freed pointer points to non-freeable page"
	msgWrongChunk       = "freed pointer points to wrong chunk"
	msgAlreadyFreeChunk = "freed pointer points to already free chunk"
	msgInvalidChunkPtr  = "invalid pointer to chunk"
)
