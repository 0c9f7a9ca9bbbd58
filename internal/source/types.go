package source

// FileID identifies a file in a FileSet. Zero means "no file".
type FileID uint32
