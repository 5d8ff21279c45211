package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/voybot/internal/enrich"
)

func (a *app) coordsCmd() *cobra.Command {
	var alt, lang string
	cmd := &cobra.Command{
		Use:   "coords <name>",
		Short: "Resolve a place on Wikidata and print its coordinates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.UserAgent == "" {
				return errors.New("USER_AGENT is required")
			}
			if lang == "" {
				lang = a.cfg.WikiLang
			}
			wd, err := a.wikidataClient()
			if err != nil {
				return err
			}
			defer wd.Close()
			e := enrich.New(wd, a.log.With("component", "enrich"), 1)

			ent, err := e.ResolveEntity(cmd.Context(), args[0], alt, lang)
			switch {
			case err != nil:
				return err
			case ent.Disambiguation:
				return fmt.Errorf("%s resolves to a disambiguation item", args[0])
			case !ent.Found():
				return fmt.Errorf("no wikidata item for %s", args[0])
			}

			c, err := e.GetCoordinates(cmd.Context(), ent.ID)
			if err != nil {
				return err
			}
			if !c.Valid() {
				fmt.Printf("%s\t(no coordinates)\n", ent.ID)
				return nil
			}
			fmt.Printf("%s\t%s\t%s\n", ent.ID, c.Lat, c.Long)
			return nil
		},
	}
	cmd.Flags().StringVar(&alt, "alt", "", "alternative name tried in English")
	cmd.Flags().StringVar(&lang, "lang", "", "wiki language of the name (default WIKI_LANG)")
	return cmd
}
