package ports

import (
	"context"

	"github.com/melih/requirement-validator/internal/core/domain"
	"github.com/melih/requirement-validator/internal/core/recipe"
)

// BuildRequest describes one image build. Exactly one of ContextDir or RepoURL is set.
type BuildRequest struct {
	ContextDir string
	RepoURL    string
	Tag        string
	Recipe     *recipe.Recipe
	// Pull forces a fresh pull of the base image.
	Pull bool
}

// BuilderService defines operations for building container images from source code.
type BuilderService interface {
	// BuildImage builds an image from a local build context or a cloned repository.
	// A failed build never reports an image.
	BuildImage(ctx context.Context, req BuildRequest) (domain.Image, error)
}
