package domain

// ProductType is the insurance line a quote belongs to. The photo checklist and the
// risk-specific section of the issuance form both depend on it.
type ProductType string

const (
	ProductBoats    ProductType = "BOATS"
	ProductProperty ProductType = "PROPERTY"
	ProductAviation ProductType = "AVIATION"
)

func (p ProductType) String() string { return string(p) }

// HasBoatSection reports whether the issuance form carries vessel data.
func (p ProductType) HasBoatSection() bool { return p == ProductBoats }

// HasPropertySection reports whether the issuance form carries premises data.
func (p ProductType) HasPropertySection() bool { return p == ProductProperty }
