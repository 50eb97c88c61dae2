package sdk

// Version is the published SDK version.
// 0.3.0: Add TrustStatus/WaitTrust and the TreatUnknownOriginAsUntrusted policy.
// 0.2.0: Breaking - app data calls take *document.Map instead of map[string]any so key order survives.
// 0.1.0: Initial release: token bootstrap, sealed identity, namespaced app data.
const Version = "0.3.0"
