package recipes

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/section"
	"github.com/dgallion1/voybot/internal/wikitext"
)

// Actions of the category-maintenance recipes.
const (
	actionAddCat = "addcat"
	actionDump   = "dump"
)

func emptySectionRecipe() *pipeline.Recipe {
	return &pipeline.Recipe{
		Name:        EmptySection,
		Description: "Report or categorize pages whose given section is empty",
		Summarize: func(p pipeline.Params) string {
			return fmt.Sprintf("Sezione %s vuota - categorizzo", p.Or("section", "Da sapere"))
		},
		Flags:    minorBot,
		Selector: category("Abbozzi"),
		Params: pipeline.Params{
			"section":  "Da sapere",
			"action":   actionDump,
			"category": "Articoli senza introduzione",
		},
		Steps: []pipeline.Step{
			{Name: "check_empty_section", Run: checkEmptySection},
		},
	}
}

// checkEmptySection looks at the single section titled by the "section"
// param at level 2 or 3. An empty one is always reported; with action
// addcat the page also gets the service category.
func checkEmptySection(ctx context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	title := pc.Params.Or("section", "Da sapere")
	s, err := section.Find(doc, title, 2, 3)
	switch {
	case errors.Is(err, section.ErrAmbiguousSection):
		pc.Sink.Violation(pc.Title, section.Violation{Kind: section.DuplicateSectionKind, Location: "page", Detail: title})
		return false, err
	case err != nil:
		return false, err
	}
	if !section.IsEmpty(s) {
		return false, nil
	}
	pc.Sink.Violation(pc.Title, section.Violation{Kind: section.EmptySectionKind, Location: title, Detail: "no content"})

	cat := pc.Params.Or("category", "Articoli senza introduzione")
	if pc.Params.Or("action", actionDump) != actionAddCat {
		pc.Sink.Follow(pc.Title, fmt.Sprintf("section %s is empty", title))
		return false, nil
	}
	in, err := pc.InCategory(ctx, cat)
	if err != nil {
		return false, err
	}
	if in || !addCategory(doc, cat) {
		return false, nil
	}
	pc.Note("added category %s", cat)
	return true, nil
}
