package classifier

import (
	"encoding/gob"
	"os"
	"path/filepath"
)

// SaveVectorizer write the vectorizer artifact atomically
func SaveVectorizer(path string, vectorizer *Vectorizer) error {
	return saveGob(path, vectorizer)
}

// LoadVectorizer read a vectorizer artifact
func LoadVectorizer(path string) (*Vectorizer, error) {
	vectorizer := &Vectorizer{}
	if err := loadGob(path, vectorizer); err != nil {
		return nil, err
	}
	return vectorizer, nil
}

// SaveModel write the model artifact atomically
func SaveModel(path string, model *Model) error {
	return saveGob(path, model)
}

// LoadModel read a model artifact
func LoadModel(path string) (*Model, error) {
	model := &Model{}
	if err := loadGob(path, model); err != nil {
		return nil, err
	}
	return model, nil
}

// saveGob encodes into a temp file in the target directory, then
// renames over the destination so readers never see a partial write.
func saveGob(path string, value interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(tmp).Encode(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func loadGob(path string, value interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gob.NewDecoder(file).Decode(value)
}
