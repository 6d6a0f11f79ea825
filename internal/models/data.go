package models

import "github.com/cochaviz/buildgate/internal/validation"

// DamageRecord is a content record describing a source of damage.
type DamageRecord struct {
	ID            string `yaml:"id"`
	Damage        int    `yaml:"damage"`
	DamageMessage string `yaml:"damage_message"`
}

var _ validation.Validatable = DamageRecord{}

func (r DamageRecord) Validate() validation.Outcome {
	var check validation.Checker

	check.Check(r.ID == "", "Missing ID")
	check.Checkf(r.Damage > 0 && r.DamageMessage == "", "Does %d damage, but has no damage message", r.Damage)

	return check.Outcome()
}
