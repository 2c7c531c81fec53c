package document

import (
	"context"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zjrosen/pyedit/internal/log"
)

// Sync brings the document to newText through the smallest edits a diff
// finds, so observers re-highlight only what changed. It returns the number
// of edits applied.
func (d *Document) Sync(ctx context.Context, newText string) (int, error) {
	old := d.Text()
	if old == newText {
		return 0, nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(old, newText, true))

	edits := 0
	pos := 0
	for i := 0; i < len(diffs); i++ {
		diff := diffs[i]
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			pos += len(diff.Text)
		case diffmatchpatch.DiffDelete:
			inserted := ""
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				inserted = diffs[i+1].Text
				i++
			}
			if err := d.Edit(ctx, pos, len(diff.Text), inserted); err != nil {
				return edits, err
			}
			pos += len(inserted)
			edits++
		case diffmatchpatch.DiffInsert:
			if err := d.Edit(ctx, pos, 0, diff.Text); err != nil {
				return edits, err
			}
			pos += len(diff.Text)
			edits++
		}
	}

	log.Debug(log.CatDocument, "synced", "doc", d.id.String(), "edits", edits, "version", d.version)
	return edits, nil
}
