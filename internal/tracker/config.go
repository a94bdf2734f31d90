package tracker

// Config controls where the tracker keeps its data.
type Config struct {
	// StoragePath is the directory holding history.db and blobs/.
	StoragePath string `yaml:"storage_path"`

	// MaxHistory is the number of versions kept per site. Zero keeps all.
	MaxHistory int `yaml:"max_history"`
}
