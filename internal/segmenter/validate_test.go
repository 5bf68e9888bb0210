package segmenter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSegment() Segment {
	return Segment{
		StartLine:      1,
		EndLine:        3,
		Lyrics:         "some lyrics",
		AIDescription:  "Triumphant rise against the odds",
		PrimaryEmotion: "triumphant",
		Energy:         "high",
		Tone:           "celebratory",
	}
}

func TestValidateSegmentsAccepts(t *testing.T) {
	valid, errs := ValidateSegments([]Segment{validSegment()}, 10)

	assert.Empty(t, errs)
	require.Len(t, valid, 1)
}

func TestValidateSegmentsRejectsBadRanges(t *testing.T) {
	bad := []Segment{}

	s := validSegment()
	s.StartLine = 0
	bad = append(bad, s)

	s = validSegment()
	s.StartLine, s.EndLine = 5, 3
	bad = append(bad, s)

	s = validSegment()
	s.EndLine = 11
	bad = append(bad, s)

	valid, errs := ValidateSegments(bad, 10)
	assert.Empty(t, valid)
	assert.Len(t, errs, 3)
}

func TestValidateSegmentsRejectsMissingFields(t *testing.T) {
	noDesc := validSegment()
	noDesc.AIDescription = ""

	noEmotion := validSegment()
	noEmotion.PrimaryEmotion = ""

	valid, errs := ValidateSegments([]Segment{noDesc, noEmotion}, 10)
	assert.Empty(t, valid)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "ai_description")
	assert.Contains(t, errs[1], "primary_emotion")
}

func TestValidateSegmentsCoercesUnknownEnergy(t *testing.T) {
	s := validSegment()
	s.Energy = "extreme"

	valid, errs := ValidateSegments([]Segment{s}, 10)

	assert.Empty(t, errs)
	require.Len(t, valid, 1)
	assert.Equal(t, "medium", valid[0].Energy)
}

func TestValidateSegmentsBoundaryLines(t *testing.T) {
	s := validSegment()
	s.StartLine, s.EndLine = 10, 10

	valid, errs := ValidateSegments([]Segment{s}, 10)
	assert.Empty(t, errs)
	assert.Len(t, valid, 1)
}
