package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

// orgUnitsFile is the YAML shape of the organization-unit table:
//
//	streams:
//	  BCA:
//	    code: bca
//	    min_period: 1
//	    max_period: 6
//	    languages: [kannada, hindi]
//	  MCOM:
//	    min_period: 5
//	    max_period: 6
type orgUnitsFile struct {
	Streams map[string]orgUnitEntry `yaml:"streams"`
}

type orgUnitEntry struct {
	Code      string   `yaml:"code"`
	MinPeriod int      `yaml:"min_period"`
	MaxPeriod int      `yaml:"max_period"`
	Languages []string `yaml:"languages"`
}

// LoadOrgUnits reads the organization-unit table from a YAML file. An empty
// path falls back to DefaultOrgUnits.
func LoadOrgUnits(path string) (*partition.Table, error) {
	if path == "" {
		return DefaultOrgUnits()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read org units file: %w", err)
	}
	return ParseOrgUnits(data)
}

// ParseOrgUnits builds the organization-unit table from YAML bytes.
func ParseOrgUnits(data []byte) (*partition.Table, error) {
	var file orgUnitsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse org units yaml: %w", err)
	}
	if len(file.Streams) == 0 {
		return nil, fmt.Errorf("org units yaml defines no streams")
	}

	units := make(map[shared.Stream]partition.OrgUnit, len(file.Streams))
	for name, entry := range file.Streams {
		languages := make([]shared.LanguageTag, 0, len(entry.Languages))
		for _, l := range entry.Languages {
			languages = append(languages, shared.LanguageTag(l).Normalized())
		}
		units[shared.Stream(name)] = partition.OrgUnit{
			Code:      entry.Code,
			MinPeriod: shared.Period(entry.MinPeriod),
			MaxPeriod: shared.Period(entry.MaxPeriod),
			Languages: languages,
		}
	}
	return partition.NewTable(units)
}

// DefaultOrgUnits returns the built-in college stream table: three-year
// undergraduate streams across six periods and two-year postgraduate streams
// restricted to periods five and six.
func DefaultOrgUnits() (*partition.Table, error) {
	ug := []shared.LanguageTag{"kannada", "hindi", "sanskrit", "urdu"}
	return partition.NewTable(map[shared.Stream]partition.OrgUnit{
		"BCA":  {MinPeriod: 1, MaxPeriod: 6, Languages: ug},
		"BBA":  {MinPeriod: 1, MaxPeriod: 6, Languages: ug},
		"BCOM": {MinPeriod: 1, MaxPeriod: 6, Languages: ug},
		"BA":   {MinPeriod: 1, MaxPeriod: 6, Languages: ug},
		"MCOM": {MinPeriod: 5, MaxPeriod: 6},
		"MFA":  {MinPeriod: 5, MaxPeriod: 6},
	})
}
