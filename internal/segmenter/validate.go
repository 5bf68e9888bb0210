package segmenter

import "fmt"

// ValidateSegments filters segments with invalid line ranges or missing
// required fields. Unknown energy values are coerced to "medium" rather
// than dropped.
func ValidateSegments(segments []Segment, totalLines int) ([]Segment, []string) {
	var valid []Segment
	var errs []string

	for i, seg := range segments {
		if seg.StartLine < 1 {
			errs = append(errs, fmt.Sprintf("Segment %d: start_line < 1", i))
			continue
		}
		if seg.EndLine < seg.StartLine {
			errs = append(errs, fmt.Sprintf("Segment %d: end_line < start_line", i))
			continue
		}
		if seg.EndLine > totalLines {
			errs = append(errs, fmt.Sprintf("Segment %d: end_line > total_lines (%d)", i, totalLines))
			continue
		}
		if seg.AIDescription == "" {
			errs = append(errs, fmt.Sprintf("Segment %d: missing ai_description", i))
			continue
		}
		if seg.PrimaryEmotion == "" {
			errs = append(errs, fmt.Sprintf("Segment %d: missing primary_emotion", i))
			continue
		}

		switch seg.Energy {
		case "low", "medium", "high", "very-high":
		default:
			seg.Energy = "medium"
		}

		valid = append(valid, seg)
	}

	return valid, errs
}
