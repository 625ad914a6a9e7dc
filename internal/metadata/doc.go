// Package metadata defines the SEO record produced for each image, the
// prompt context extracted from WordPress pages, and the field limits every
// generator output is clamped to.
package metadata
