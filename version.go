package folio

// Version is the release of this module, reported by `folio version`.
const Version = "0.1.0"
