package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// FindPageByText returns the first page whose rich text property equals
// value, or nil when none matches.
func FindPageByText(ctx context.Context, c Client, dbID, property, value string) (*notionapi.Page, error) {
	req := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: property,
			RichText: &notionapi.TextFilterCondition{Equals: value},
		},
		PageSize: 1,
	}
	resp, err := c.QueryDatabase(ctx, dbID, req)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("notion: find page by %s", property))
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

// UpsertPage updates the page whose rich text property equals key, or
// creates one in dbID when none exists. It reports whether a page was
// created.
func UpsertPage(ctx context.Context, c Client, dbID, property, key string, props notionapi.Properties) (bool, error) {
	page, err := FindPageByText(ctx, c, dbID, property, key)
	if err != nil {
		return false, err
	}
	if page != nil {
		if _, err := c.UpdatePage(ctx, string(page.ID), &notionapi.PageUpdateRequest{Properties: props}); err != nil {
			return false, err
		}
		return false, nil
	}

	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	}
	if _, err := c.CreatePage(ctx, req); err != nil {
		return false, err
	}
	return true, nil
}
