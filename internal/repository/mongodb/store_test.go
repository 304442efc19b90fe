package mongodb

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalizeMapFlattensDriverTypes(t *testing.T) {
	in := map[string]any{
		"whatsapp": primitive.M{
			"waba_id": "3000",
			"business_profile": primitive.M{
				"websites": primitive.A{"https://acme.test"},
			},
		},
		"ordered": primitive.D{{Key: "a", Value: int32(1)}},
	}

	out := normalizeMap(in)

	wa, ok := out["whatsapp"].(map[string]any)
	require.True(t, ok)
	profile, ok := wa["business_profile"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, []any{"https://acme.test"}, profile["websites"])
	require.Equal(t, map[string]any{"a": int32(1)}, out["ordered"])
}

func TestNormalizeMapRoundTripsThroughBSON(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"metadata": bson.M{"whatsapp": bson.M{"phone_number_id": "2000"}}})
	require.NoError(t, err)

	var doc struct {
		Metadata map[string]any `bson:"metadata"`
	}
	require.NoError(t, bson.Unmarshal(raw, &doc))

	meta := normalizeMap(doc.Metadata)
	wa, ok := meta["whatsapp"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "2000", wa["phone_number_id"])
}

func TestNormalizeMapNil(t *testing.T) {
	require.Nil(t, normalizeMap(nil))
}
