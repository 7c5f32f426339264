package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/opedromartinss/cotacoes-cafe/internal/app"
)

var (
	renderArabica string
	renderConilon string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write the site artifacts from fixed prices, without fetching",
	RunE: func(cmd *cobra.Command, args []string) error {
		arabica, err := decimal.NewFromString(renderArabica)
		if err != nil {
			return fmt.Errorf("invalid --arabica value: %w", err)
		}
		conilon, err := decimal.NewFromString(renderConilon)
		if err != nil {
			return fmt.Errorf("invalid --conilon value: %w", err)
		}

		opts := app.RenderOptions{
			Arabica: arabica,
			Conilon: conilon,
		}

		return getApp().Render(cmd.Context(), opts)
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderArabica, "arabica", "", "Arabica price in BRL per saca (e.g. 2292.66)")
	renderCmd.Flags().StringVar(&renderConilon, "conilon", "", "Conilon price in BRL per saca (e.g. 1402.21)")
	_ = renderCmd.MarkFlagRequired("arabica")
	_ = renderCmd.MarkFlagRequired("conilon")
}
