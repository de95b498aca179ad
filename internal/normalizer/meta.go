package normalizer

import (
	"github.com/saturnino-fabrica-de-software/socialhook/internal/payload"
)

// metaView flattens a Graph API delivery into
//
//	{field, value, messaging, entry}
//
// where field and value come from the first change of the first entry.
// Graph batches several entries per delivery; only the first is classified.
func metaView(root payload.Value) payload.Value {
	entry := root.Get("entry.0")
	change := entry.Get("changes.0")

	return payload.Of(map[string]interface{}{
		"object":    root.Get("object").Raw(),
		"field":     change.Get("field").Raw(),
		"value":     change.Get("value").Raw(),
		"messaging": entry.Get("messaging").Raw(),
		"entry":     root.Get("entry").Raw(),
	})
}
