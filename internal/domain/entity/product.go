package entity

// Product is a listing owned by the external catalog. Only the fields needed
// to authorize and label a conversation are kept.
type Product struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Images   []string `json:"images"`
	SellerID string   `json:"seller_id"`
}

type ProductSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Image string `json:"image,omitempty"`
}

func (p *Product) Summary() *ProductSummary {
	s := &ProductSummary{ID: p.ID, Title: p.Title}
	if len(p.Images) > 0 {
		s.Image = p.Images[0]
	}
	return s
}
