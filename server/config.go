package nocturne

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	Nt "github.com/maroda/nocturne/types"
)

// ConfigFile is one cohort stanza: a directory of stage files and
// the geometry used to analyze them. Zero values fall back to the
// package defaults so a minimal stanza only needs id, dir, format.
type ConfigFile struct {
	ID       string  `json:"id"`
	Dir      string  `json:"dir"`
	Format   string  `json:"format"`             // stage source plugin name
	EpochSec float64 `json:"epoch_seconds"`      // default 30
	KeepWake bool    `json:"keep_trailing_wake"` // skip the trim entirely
	MaxWake  int     `json:"max_wake_epochs"`    // default 10
	MinNREM  int     `json:"min_nrem_epochs"`    // default 30
	MinREM   int     `json:"min_rem_epochs"`     // default 10
	Scorer   string  `json:"scorer"`             // complexity plugin, empty = none
	Output   string  `json:"output"`             // output adapter plugin name
	OutPath  string  `json:"out_path"`           // adapter location on disk
	StageDir string  `json:"stage_dir"`          // per-recording label exports
	Workers  int     `json:"workers"`            // default 4
}

// LoadConfigFileName pulls a given filename config off local disk
// Validation is performed on the file before opening
func LoadConfigFileName(filename string) ([]ConfigFile, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// validation
	err = validateLoad(file)
	if err != nil {
		slog.Error("Validation failed", slog.Any("Error", err))
		return nil, err
	}

	return LoadConfig(file)
}

func validateLoad(file *os.File) error {
	// validate file
	info, err := file.Stat()
	if err != nil {
		slog.Error("could not stat file")
		return err
	}

	// validate size
	if info.Size() == 0 {
		slog.Error("file is empty")
		return errors.New("file is empty")
	}

	return nil
}

func LoadConfig(file *os.File) ([]ConfigFile, error) {
	// open file
	cf, err := os.Open(file.Name())
	if err != nil {
		slog.Error("could not open file")
		return nil, err
	}
	defer cf.Close()

	// decode json
	var config []ConfigFile
	decoder := json.NewDecoder(cf)
	if err := decoder.Decode(&config); err != nil {
		slog.Error("could not decode file")
		return nil, err
	}

	for i := range config {
		fillDefaults(&config[i])
	}

	return config, nil
}

// fillDefaults seeds the scoring geometry a stanza leaves out.
// KeepWake wins over MaxWake when both are set.
func fillDefaults(cf *ConfigFile) {
	if cf.EpochSec <= 0 {
		cf.EpochSec = Nt.DefaultEpochSec
	}
	if cf.MaxWake <= 0 {
		cf.MaxWake = Nt.DefaultMaxWakeEpochs
	}
	if cf.MinNREM <= 0 {
		cf.MinNREM = Nt.DefaultMinNREMEpochs
	}
	if cf.MinREM <= 0 {
		cf.MinREM = Nt.DefaultMinREMEpochs
	}
	if cf.Workers <= 0 {
		cf.Workers = 4
	}
	if cf.Format == "" {
		cf.Format = "lines"
	}
}
