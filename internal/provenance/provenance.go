// Package provenance records where a transplanted engine came from. The
// descriptor lives inside the car's data folder next to the files it
// explains, so it travels with the car and survives repacking.
package provenance

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/enginecrane/enginecrane/internal/crate"
	"github.com/enginecrane/enginecrane/internal/datafolder"
)

// FileName is the descriptor's name inside the data folder.
const FileName = "engine-crane.provenance"

// CurrentVersion is the descriptor format this build writes.
const CurrentVersion = 1

// ErrUnsupportedVersion marks a descriptor written by a newer build. Read
// still returns the decoded descriptor so callers can surface what they can.
var ErrUnsupportedVersion = errors.New("provenance: unsupported descriptor version")

// Artifact is one donor input file and its content hash. The hash is empty
// when the artifact was absent at decode time.
type Artifact struct {
	Name   string `yaml:"name"`
	SHA256 string `yaml:"sha256,omitempty"`
}

// Descriptor is the on-disk provenance record.
type Descriptor struct {
	Version    int        `yaml:"version"`
	SourceKind string     `yaml:"sourceKind"`
	EngineUUID string     `yaml:"engineUUID"`
	EngineName string     `yaml:"engineName,omitempty"`
	Artifacts  []Artifact `yaml:"artifacts"`
}

// artifactNames maps each donor kind to the positional artifact slot names
// used by the decoders.
func artifactNames(kind crate.DonorKind) []string {
	switch kind {
	case crate.KindBundle:
		return []string{"descriptor", "engine.jbeam", "engine.params"}
	case crate.KindExport:
		return []string{"export"}
	}
	return nil
}

// FromEngine builds the descriptor for a decoded crate-engine record.
func FromEngine(e *crate.Engine) (*Descriptor, error) {
	names := artifactNames(e.Kind)
	if names == nil {
		return nil, fmt.Errorf("provenance: unknown donor kind %q", e.Kind)
	}
	if len(e.ArtifactHashes) != len(names) {
		return nil, fmt.Errorf("provenance: %s record carries %d hashes, want %d",
			e.Kind, len(e.ArtifactHashes), len(names))
	}
	d := &Descriptor{
		Version:    CurrentVersion,
		SourceKind: string(e.Kind),
		EngineUUID: e.UUID,
		EngineName: e.Name,
		Artifacts:  make([]Artifact, len(names)),
	}
	for i, name := range names {
		d.Artifacts[i].Name = name
		if h := e.ArtifactHashes[i]; h != nil {
			d.Artifacts[i].SHA256 = hex.EncodeToString(h[:])
		}
	}
	return d, nil
}

// Marshal renders the descriptor. The rendering is byte-stable: the same
// descriptor always yields the same bytes, so repeated transplants of the
// same donor leave the file untouched.
func (d *Descriptor) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("provenance: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("provenance: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Write stores the descriptor in the data folder.
func (d *Descriptor) Write(gw datafolder.Gateway) error {
	b, err := d.Marshal()
	if err != nil {
		return err
	}
	return gw.Write(FileName, b)
}

// Read loads the descriptor from the data folder. A descriptor from a newer
// build decodes as far as the shared fields reach and is returned together
// with ErrUnsupportedVersion.
func Read(gw datafolder.Gateway) (*Descriptor, error) {
	raw, err := gw.Read(FileName)
	if err != nil {
		return nil, err
	}
	d := &Descriptor{}
	if err := yaml.Unmarshal(raw, d); err != nil {
		return nil, fmt.Errorf("provenance: decode: %w", err)
	}
	if d.Version > CurrentVersion {
		return d, fmt.Errorf("%w: %d", ErrUnsupportedVersion, d.Version)
	}
	return d, nil
}
