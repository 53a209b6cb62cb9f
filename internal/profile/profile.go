// Package profile describes the editor-in-chief shown on the editorial
// board page.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"revue/internal/i18n"
	"revue/internal/model"
)

type Specialty struct {
	Title       model.Localized `json:"title"`
	Description model.Localized `json:"description"`
}

// Profile is the bilingual record behind the editorial board page.
type Profile struct {
	Name            string            `json:"name"`
	Title           model.Localized   `json:"title"`
	YearsExperience int               `json:"years_experience"`
	Bio             model.Localized   `json:"bio"`
	Specialties     []Specialty       `json:"specialties"`
	Achievements    []model.Localized `json:"achievements"`
	Contact         string            `json:"contact,omitempty"`
}

// Default is the profile the review ships with.
func Default() Profile {
	return Profile{
		Name:            "Dr. Eleanor Sterling, PhD",
		Title:           model.Localized{EN: "Editor-in-Chief | RASS", FR: "Rédactrice en Chef | RASS"},
		YearsExperience: 18,
		Bio: model.Localized{
			EN: "Dr. Eleanor Sterling is the founder of the Revue Africaine des Sciences Sociales. With a PhD in Political Science and Law, she has dedicated her career to fostering academic research in Central Africa. She oversees the editorial direction of the journal.",
			FR: "Dr. Eleanor Sterling est la fondatrice de la Revue Africaine des Sciences Sociales. Titulaire d'un doctorat en sciences politiques et en droit, elle a consacré sa carrière à la promotion de la recherche universitaire en Afrique centrale. Elle supervise la direction éditoriale de la revue.",
		},
		Specialties: []Specialty{
			{
				Title:       model.Localized{EN: "Academic Review", FR: "Revue Académique"},
				Description: model.Localized{EN: "Peer review and publication standards.", FR: "Évaluation par les pairs et normes de publication."},
			},
			{
				Title:       model.Localized{EN: "Public Law", FR: "Droit Public"},
				Description: model.Localized{EN: "Constitutional and administrative analysis.", FR: "Analyse constitutionnelle et administrative."},
			},
			{
				Title:       model.Localized{EN: "Social Dynamics", FR: "Dynamiques Sociales"},
				Description: model.Localized{EN: "Sociological trends in urban Africa.", FR: "Tendances sociologiques en Afrique urbaine."},
			},
		},
		Achievements: []model.Localized{
			{EN: "Editor of the Year 2023 (African Journals)", FR: "Éditeur de l'Année 2023 (Revues Africaines)"},
			{EN: "Chair of the Central African Research Council", FR: "Présidente du Conseil de Recherche d'Afrique Centrale"},
			{EN: "Published 50+ monthly editions", FR: "A publié plus de 50 éditions mensuelles"},
		},
	}
}

// Load reads a profile from a JSON file. An empty path yields Default.
func Load(path string) (Profile, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile %s: %w", path, err)
	}
	if strings.TrimSpace(p.Name) == "" {
		return Profile{}, fmt.Errorf("profile %s has no name", path)
	}
	return p, nil
}

// Entry is a localized specialty.
type Entry struct {
	Title       string
	Description string
}

// Display is a profile resolved to one language.
type Display struct {
	Name            string
	Title           string
	YearsExperience int
	Bio             string
	Specialties     []Entry
	Achievements    []string
	Contact         string
}

// In resolves every bilingual field for lang, falling back to the other
// language where a translation is missing.
func (p Profile) In(lang i18n.Language) Display {
	l := string(lang)
	d := Display{
		Name:            p.Name,
		Title:           p.Title.In(l),
		YearsExperience: p.YearsExperience,
		Bio:             p.Bio.In(l),
		Contact:         p.Contact,
	}
	for _, s := range p.Specialties {
		d.Specialties = append(d.Specialties, Entry{Title: s.Title.In(l), Description: s.Description.In(l)})
	}
	for _, a := range p.Achievements {
		if text := a.In(l); text != "" {
			d.Achievements = append(d.Achievements, text)
		}
	}
	return d
}
