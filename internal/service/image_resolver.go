package service

import (
	"context"
	"fmt"
	"strings"

	"yesteryear/internal/domain"
	"yesteryear/internal/logger"
	"yesteryear/internal/util"

	"go.uber.org/zap"
)

// ImageRequest describes the story an illustrative image is needed for.
type ImageRequest struct {
	Title      string
	ImageQuery string
	Year       int
}

// ResolvedImage is the outcome of the resolution chain. ImageURL is never
// empty; the chain bottoms out at a static placeholder.
type ResolvedImage struct {
	ImageURL string
	PageURL  string
}

// ImageResolver finds an illustrative image by walking a fixed priority
// chain: encyclopedia summary, image search, model image generation, and
// finally a static placeholder.
type ImageResolver struct {
	wiki  domain.EncyclopediaClient
	model domain.ModelClient
}

// NewImageResolver wires an image resolver.
func NewImageResolver(wiki domain.EncyclopediaClient, model domain.ModelClient) *ImageResolver {
	return &ImageResolver{wiki: wiki, model: model}
}

// candidateTitles builds the lookup variants, deduplicated
// case-insensitively so no variant is queried twice.
func candidateTitles(req ImageRequest) []string {
	variants := []string{
		req.Title,
		fmt.Sprintf("%s (%d)", req.Title, req.Year),
		req.ImageQuery,
		fmt.Sprintf("%s %d", req.ImageQuery, req.Year),
		fmt.Sprintf("%s UK %d", req.Title, req.Year),
	}
	seen := make(map[string]bool, len(variants))
	candidates := make([]string, 0, len(variants))
	for _, variant := range variants {
		normalized := util.NormalizeText(variant)
		if normalized == "" {
			continue
		}
		key := strings.ToLower(normalized)
		if seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, normalized)
	}
	return candidates
}

// Resolve walks the chain and always returns a usable image URL. Failures
// at any stage fall through to the next one.
func (r *ImageResolver) Resolve(ctx context.Context, req ImageRequest) ResolvedImage {
	candidates := candidateTitles(req)

	for _, candidate := range candidates {
		summary, err := r.wiki.Summary(ctx, candidate)
		if err != nil {
			logger.Get().Debug("summary lookup failed", zap.String("title", candidate), zap.Error(err))
			continue
		}
		if summary != nil && summary.ImageURL != "" {
			return ResolvedImage{ImageURL: summary.ImageURL, PageURL: summary.PageURL}
		}
	}

	for _, candidate := range candidates {
		imageURL, err := r.wiki.SearchImage(ctx, candidate)
		if err != nil {
			logger.Get().Debug("image search failed", zap.String("query", candidate), zap.Error(err))
			continue
		}
		if imageURL != "" {
			return ResolvedImage{ImageURL: imageURL, PageURL: util.WikiSearchURL(candidate)}
		}
	}

	prompt := strings.Join([]string{
		fmt.Sprintf("Cinematic realistic documentary-style scene set in %d.", req.Year),
		fmt.Sprintf("Subject: %s.", req.Title),
		"Historically grounded atmosphere.",
		"No text, no logos, no watermarks.",
	}, " ")
	storagePath := fmt.Sprintf("year-news/%d/stories/%s.png", req.Year, util.StoryKey(req.Year, 1, req.Title))
	if imageURL := r.model.GenerateImage(ctx, prompt, storagePath); imageURL != "" {
		return ResolvedImage{
			ImageURL: imageURL,
			PageURL:  util.WikiSearchURL(fmt.Sprintf("%s %d", req.Title, req.Year)),
		}
	}

	return ResolvedImage{
		ImageURL: domain.FallbackImageURL,
		PageURL:  util.WikiSearchURL(fmt.Sprintf("%s %d", req.Title, req.Year)),
	}
}
