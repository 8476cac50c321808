package showroom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showroom/internal/model"
)

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(`
rooms:
  - id: den
    name: Den
    capacity: 3
    installedWidgetDomain: widgets.example.com
    models:
      - name: chair
        glbUrl: /m/chair.glb
        position: [12, 34.5]
        size: [1, 2, 3]
        entranceOrder: 4
`))
	require.NoError(t, err)
	require.Len(t, c.Rooms, 1)
	def := c.Rooms[0]
	assert.Equal(t, "den", def.ID)
	assert.Equal(t, 3, def.Capacity)
	assert.Equal(t, "widgets.example.com", def.InstalledWidgetDomain)
	require.Len(t, def.Models, 1)
	assert.Equal(t, model.PlacedObject{
		Name:          "chair",
		GLBURL:        "/m/chair.glb",
		Position:      model.Pos(12, 34.5),
		Size:          [3]float64{1, 2, 3},
		EntranceOrder: 4,
	}, def.Models[0])
}

func TestParseCatalog_Invalid(t *testing.T) {
	cases := map[string]string{
		"syntax":         "rooms: [",
		"missing id":     "rooms:\n  - name: x\n",
		"duplicate room": "rooms:\n  - id: a\n  - id: a\n",
		"duplicate model": `rooms:
  - id: a
    models:
      - {name: m, position: [1, 1]}
      - {name: m, position: [2, 2]}
`,
		"off canvas": `rooms:
  - id: a
    models:
      - {name: m, position: [900, 1]}
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}
