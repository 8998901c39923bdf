package game

import (
	"fmt"
	"sort"

	"shopsim/internal/catalog"

	"github.com/samber/lo"
)

// XP needed to reach levels 1 through 5.
var levelThresholds = [...]float64{0, 100, 300, 600, 1000}

const (
	MaxSkillLevel          = 5
	SpecializationMinLevel = 3
	baseTaskXP             = 20.0
)

type Relevance float64

const (
	RelevancePrimary   Relevance = 1.0
	RelevanceSecondary Relevance = 0.5
	RelevanceMinor     Relevance = 0.25
)

func difficultyMultiplier(d catalog.Difficulty) float64 {
	switch d {
	case catalog.DifficultyMedium:
		return 1.5
	case catalog.DifficultyHard:
		return 2.0
	default:
		return 1.0
	}
}

func TaskExperience(d catalog.Difficulty, r Relevance) float64 {
	return baseTaskXP * difficultyMultiplier(d) * float64(r)
}

func LevelForXP(xp float64) int {
	level := 1
	for i := 1; i < len(levelThresholds); i++ {
		if xp >= levelThresholds[i] {
			level = i + 1
		}
	}
	return level
}

// AwardSkillExperience adds XP to one skill and levels it up as many times as
// the new total allows. It returns the number of levels gained.
func AwardSkillExperience(e Employee, skill string, xp float64) (Employee, int) {
	if xp <= 0 || skill == "" {
		return e, 0
	}
	e = e.Clone()
	if e.Skills == nil {
		e.Skills = map[string]SkillProgress{}
	}
	sp := e.Skills[skill]
	if sp.Level == 0 {
		sp.Level = 1
	}
	before := sp.Level
	sp.XP += xp
	for sp.Level < MaxSkillLevel && sp.XP >= levelThresholds[sp.Level] {
		sp.Level++
	}
	e.Skills[skill] = sp
	return e, sp.Level - before
}

// AwardTaskExperience credits the product's primary and secondary skills and,
// when it is neither, the employee's specialization at minor relevance.
func AwardTaskExperience(e Employee, p catalog.ProductTemplate) (Employee, int) {
	gained := 0
	var n int
	e, n = AwardSkillExperience(e, p.PrimarySkill, TaskExperience(p.Difficulty, RelevancePrimary))
	gained += n
	for _, s := range p.SecondarySkills {
		e, n = AwardSkillExperience(e, s, TaskExperience(p.Difficulty, RelevanceSecondary))
		gained += n
	}
	if spec := e.Specialization; spec != "" && spec != p.PrimarySkill && !lo.Contains(p.SecondarySkills, spec) {
		e, n = AwardSkillExperience(e, spec, TaskExperience(p.Difficulty, RelevanceMinor))
		gained += n
	}
	return e, gained
}

// CalculatePerformanceModifier maps stats into 0.7-1.3, adjusts for a
// specialization match (+25%) or mismatch (-15%), then applies the morale
// penalty (50-morale)/100 when morale is below 50.
func CalculatePerformanceModifier(e Employee, skill string) float64 {
	avg := (e.Stats.Speed + e.Stats.Quality + e.Stats.Morale) / 3
	mod := 0.7 + clampScore(avg)/100*0.6
	if e.Specialization != "" {
		if e.Specialization == skill {
			mod *= 1.25
		} else {
			mod *= 0.85
		}
	}
	if e.Stats.Morale < 50 {
		mod *= 1 - (50-e.Stats.Morale)/100
	}
	return mod
}

func AssignSpecialization(e Employee, skill string) (Employee, error) {
	if e.Specialization != "" {
		return e, fmt.Errorf("%w: %s is a %s specialist", ErrAlreadySpecialized, e.Name, e.Specialization)
	}
	if e.Skills[skill].Level < SpecializationMinLevel {
		return e, fmt.Errorf("%w: %s has %s at level %d", ErrSpecializationLocked, e.Name, skill, e.Skills[skill].Level)
	}
	e = e.Clone()
	e.Specialization = skill
	return e, nil
}

// AutoSpecialize picks the alphabetically first skill at level 3 or above for
// an employee who has none yet.
func AutoSpecialize(e Employee) (Employee, bool) {
	if e.Specialization != "" {
		return e, false
	}
	names := make([]string, 0, len(e.Skills))
	for name := range e.Skills {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if e.Skills[name].Level >= SpecializationMinLevel {
			out, err := AssignSpecialization(e, name)
			return out, err == nil
		}
	}
	return e, false
}
