package game

import (
	"fmt"
	"time"

	"shopsim/internal/catalog"

	"github.com/samber/lo"
)

var (
	firstNames = []string{"Maya", "Arun", "Iris", "Noah", "Tara", "Kian", "Lea", "Ravi", "Nora", "Evan", "Zara", "Omar", "Lina", "Kade", "Ava", "Dion", "Sana", "Milo", "Rhea", "Theo"}
	lastNames  = []string{"Lee", "Vale", "Knox", "Pike", "Sol", "Moss", "Rowe", "Jain", "Park", "Reid", "Cross", "Quill", "Stone", "Wren", "Bose", "Cho", "Kent", "Ford", "Hart", "Yoon"}
	traits     = []string{"disciplined", "innovative", "charismatic", "careful", "resilient", "meticulous", "adaptive", "ambitious"}
)

type roleProfile struct {
	role   Role
	weight float64
	salary float64
	speed  float64
	qual   float64
}

var hiringMix = []roleProfile{
	{role: RoleTrainee, weight: 0.45, salary: 60, speed: 45, qual: 45},
	{role: RoleSpeedster, weight: 0.25, salary: 85, speed: 75, qual: 50},
	{role: RoleSpecialist, weight: 0.22, salary: 110, speed: 55, qual: 75},
	{role: RoleManager, weight: 0.08, salary: 140, speed: 60, qual: 65},
}

// archetypeSkills lists every skill the archetype's products use, primary
// skills first.
func archetypeSkills(bt catalog.BusinessType) []string {
	var out []string
	for _, p := range bt.Products {
		out = append(out, p.PrimarySkill)
	}
	for _, p := range bt.Products {
		out = append(out, p.SecondarySkills...)
	}
	return lo.Uniq(lo.Compact(out))
}

func GenerateCandidate(rng Rand, bt catalog.BusinessType, now time.Time) Candidate {
	i := weightedIndex(rng, lo.Map(hiringMix, func(r roleProfile, _ int) float64 { return r.weight }))
	if i < 0 {
		i = 0
	}
	prof := hiringMix[i]
	skills := map[string]SkillProgress{}
	pool := archetypeSkills(bt)
	if len(pool) > 0 {
		picks := 1 + rng.Intn(2)
		for n := 0; n < picks; n++ {
			s := pool[rng.Intn(len(pool))]
			xp := float64(rng.Intn(350))
			if prof.role == RoleSpecialist {
				xp += 150
			}
			skills[s] = SkillProgress{Level: LevelForXP(xp), XP: xp}
		}
	}
	return Candidate{
		ID:           newID(rng),
		Name:         fmt.Sprintf("%s %s", firstNames[rng.Intn(len(firstNames))], lastNames[rng.Intn(len(lastNames))]),
		Role:         prof.role,
		Trait:        traits[rng.Intn(len(traits))],
		SalaryPerDay: roundCents(prof.salary * (0.85 + rng.Float64()*0.3)),
		Stats: Stats{
			Speed:   clampScore(prof.speed + jitter(rng, 12)),
			Quality: clampScore(prof.qual + jitter(rng, 12)),
			Morale:  clampScore(70 + jitter(rng, 15)),
		},
		Skills:   skills,
		PostedAt: now,
	}
}

// RefreshRecruitmentPool tops the pool up with two or three new candidates
// when it has room, never past MaxRecruitmentPool.
func RefreshRecruitmentPool(rng Rand, bt catalog.BusinessType, pool []Candidate, now time.Time) []Candidate {
	out := append([]Candidate(nil), pool...)
	if len(out) >= MaxRecruitmentPool {
		return out
	}
	add := min(2+rng.Intn(2), MaxRecruitmentPool-len(out))
	for n := 0; n < add; n++ {
		out = append(out, GenerateCandidate(rng, bt, now))
	}
	return out
}

type Hire struct {
	Employee    Employee
	Pool        []Candidate
	SigningCost float64
}

// HireCandidate turns a candidate into an employee. The signing cost is one
// day's salary and must be affordable.
func HireCandidate(pool []Candidate, cash float64, candidateID string, now time.Time) (Hire, error) {
	idx := lo.IndexOf(lo.Map(pool, func(c Candidate, _ int) string { return c.ID }), candidateID)
	if idx < 0 {
		return Hire{}, fmt.Errorf("%w: %s", ErrCandidateNotFound, candidateID)
	}
	c := pool[idx]
	if c.SalaryPerDay > cash {
		return Hire{}, fmt.Errorf("%w: signing %s costs %.2f", ErrInsufficientFunds, c.Name, c.SalaryPerDay)
	}
	rest := append(append([]Candidate(nil), pool[:idx]...), pool[idx+1:]...)
	return Hire{
		Employee: Employee{
			ID:           c.ID,
			Name:         c.Name,
			Role:         c.Role,
			SalaryPerDay: c.SalaryPerDay,
			Stats:        c.Stats,
			Skills:       cloneMap(c.Skills),
			HiredAt:      now,
		},
		Pool:        rest,
		SigningCost: c.SalaryPerDay,
	}, nil
}

// FoundingManager is the owner-operated manager every new business starts
// with.
func FoundingManager(rng Rand, bt catalog.BusinessType, now time.Time) Employee {
	skills := map[string]SkillProgress{}
	for _, s := range archetypeSkills(bt) {
		skills[s] = SkillProgress{Level: 1}
	}
	return Employee{
		ID:           newID(rng),
		Name:         fmt.Sprintf("%s %s", firstNames[rng.Intn(len(firstNames))], lastNames[rng.Intn(len(lastNames))]),
		Role:         RoleManager,
		SalaryPerDay: 100,
		Stats:        Stats{Speed: 60, Quality: 65, Morale: 80},
		Skills:       skills,
		HiredAt:      now,
	}
}
