package generator

import (
	"context"
	"fmt"

	"imageseo/internal/metadata"
)

const basicKeywordCount = 5

// Basic derives metadata from the page context without calling any model.
// It keeps the agent functional when no provider is reachable.
type Basic struct{}

// NewBasic returns the no-network generator.
func NewBasic() *Basic {
	return &Basic{}
}

func (*Basic) Name() string { return "basic" }

func (*Basic) Generate(_ context.Context, req Request) (metadata.Record, error) {
	keywords := req.Context.Keywords(basicKeywordCount)
	if keywords == "" {
		keywords = "cette page"
	}
	record := metadata.Record{
		AltText:     fmt.Sprintf("Image liée à %s", keywords),
		Title:       metadata.Truncate(keywords, metadata.TitleLimit),
		Caption:     fmt.Sprintf("Illustration pour %s", keywords),
		Description: fmt.Sprintf("Cette image illustre le contenu relatif à %s", keywords),
	}
	return record.Clamp(), nil
}
