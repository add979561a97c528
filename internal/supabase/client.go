package supabase

import (
	"context"
	"fmt"

	"design-lab-backend/internal/apperr"
	"design-lab-backend/internal/config"
	"design-lab-backend/internal/models"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
)

type Client struct {
	Supabase *supabase.Client
	Config   *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		Supabase: client,
		Config:   cfg,
	}, nil
}

// VariantClient reads product variant templates from the catalog table over PostgREST.
type VariantClient struct {
	client *supabase.Client
	table  string
}

func NewVariantClient(c *Client) *VariantClient {
	table := c.Config.SupabaseVariantsTable
	if table == "" {
		table = "product_variants"
	}
	return &VariantClient{client: c.Supabase, table: table}
}

type variantRow struct {
	ID               uuid.UUID `json:"id"`
	FrontTemplateURL *string   `json:"front_template_url"`
	BackTemplateURL  *string   `json:"back_template_url"`
}

func (v *VariantClient) GetVariant(ctx context.Context, id uuid.UUID) (*models.VariantTemplates, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []variantRow
	_, err := v.client.From(v.table).
		Select("id,front_template_url,back_template_url", "", false).
		Eq("id", id.String()).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch variant %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("variant")
	}

	row := rows[0]
	return &models.VariantTemplates{
		ID:               row.ID,
		FrontTemplateURL: row.FrontTemplateURL,
		BackTemplateURL:  row.BackTemplateURL,
	}, nil
}
