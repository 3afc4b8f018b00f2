package catalog

import (
	"encoding/json"
	"time"
)

// ---------------------------------------------------------------------------
// REST payloads
// ---------------------------------------------------------------------------

// productJSON is a product as returned by the REST API
type productJSON struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	BodyHTML    string      `json:"body_html"`
	Vendor      string      `json:"vendor"`
	ProductType string      `json:"product_type"`
	Tags        string      `json:"tags"`
	Status      string      `json:"status"`
	Images      []imageJSON `json:"images"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// imageJSON is a product image; Attachment is only set on upload
type imageJSON struct {
	ID         int64  `json:"id,omitempty"`
	Src        string `json:"src,omitempty"`
	Alt        string `json:"alt,omitempty"`
	Position   int    `json:"position,omitempty"`
	Attachment string `json:"attachment,omitempty"`
	Filename   string `json:"filename,omitempty"`
}

type productEnvelope struct {
	Product productJSON `json:"product"`
}

type productsEnvelope struct {
	Products []productJSON `json:"products"`
}

// metafieldJSON is a stored attribute as returned by the REST API
type metafieldJSON struct {
	ID        int64  `json:"id"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

type metafieldsEnvelope struct {
	Metafields []metafieldJSON `json:"metafields"`
}

type collectJSON struct {
	ProductID    int64 `json:"product_id"`
	CollectionID int64 `json:"collection_id"`
}

type collectEnvelope struct {
	Collect collectJSON `json:"collect"`
}

// restErrorBody covers both error shapes the REST API returns
type restErrorBody struct {
	Errors json.RawMessage `json:"errors"`
}

// ---------------------------------------------------------------------------
// GraphQL payloads
// ---------------------------------------------------------------------------

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
}

type metafieldNode struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

type nodesData struct {
	Nodes []*struct {
		ID         string `json:"id"`
		Metafields struct {
			Nodes []metafieldNode `json:"nodes"`
		} `json:"metafields"`
	} `json:"nodes"`
}

type metafieldsSetData struct {
	MetafieldsSet struct {
		Metafields []metafieldNode `json:"metafields"`
		UserErrors []userError     `json:"userErrors"`
	} `json:"metafieldsSet"`
}

type metafieldsDeleteData struct {
	MetafieldsDelete struct {
		DeletedMetafields []*struct {
			Key       string `json:"key"`
			Namespace string `json:"namespace"`
		} `json:"deletedMetafields"`
		UserErrors []userError `json:"userErrors"`
	} `json:"metafieldsDelete"`
}

// metafieldSetInput is one entry of a metafieldsSet call
type metafieldSetInput struct {
	OwnerID   string `json:"ownerId"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// metafieldIdentifier is one entry of a metafieldsDelete call
type metafieldIdentifier struct {
	OwnerID   string `json:"ownerId"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
}

const batchAttributesQuery = `query BatchAttributes($ids: [ID!]!, $first: Int!) {
  nodes(ids: $ids) {
    ... on Product {
      id
      metafields(first: $first) {
        nodes { namespace key value type }
      }
    }
  }
}`

const setAttributesMutation = `mutation SetAttributes($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields { namespace key value type }
    userErrors { field message code }
  }
}`

const deleteAttributesMutation = `mutation DeleteAttributes($metafields: [MetafieldIdentifierInput!]!) {
  metafieldsDelete(metafields: $metafields) {
    deletedMetafields { key namespace }
    userErrors { field message }
  }
}`
