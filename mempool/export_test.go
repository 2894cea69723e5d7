package mempool

// DebugAddr exposes addrOf to the external test package so tests can
// assert reuse/identity of returned regions without reaching into
// unexported internals directly.
var DebugAddr = addrOf
