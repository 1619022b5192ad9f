package engine

import (
	"sort"
	"time"

	"github.com/lukisch/ProSync/internal/conflict"
	"github.com/lukisch/ProSync/internal/models"
)

// entriesDiffer is the shared diff rule: a pair differs when sizes differ
// or the modification times are more than the tolerance apart.
func entriesDiffer(a, b models.FileEntry) bool {
	return a.Size != b.Size || conflict.Newer(a, b) || conflict.Newer(b, a)
}

func (e *Engine) buildPlan(conn models.Connection, src, dst map[string]models.FileEntry, resolve pathResolver) *models.SyncPlan {
	plan := &models.SyncPlan{ConnectionID: conn.ID, CreatedAt: time.Now()}
	switch conn.Mode {
	case models.ModeMirror:
		e.planMirror(src, dst, resolve, plan)
	case models.ModeUpdate:
		e.planOneDirectional(src, dst, resolve, plan, false)
	case models.ModeOneWay:
		e.planOneDirectional(src, dst, resolve, plan, true)
	case models.ModeTwoWay:
		e.planTwoWay(conn, src, dst, resolve, plan)
	case models.ModeIndexOnly:
		e.planIndexOnly(src, dst, plan)
	}
	return plan
}

// planMirror makes the target an exact copy of the source. Deletes are
// appended after all copies so a crash never leaves an entry missing on
// both sides.
func (e *Engine) planMirror(src, dst map[string]models.FileEntry, resolve pathResolver, plan *models.SyncPlan) {
	for _, rel := range sortedKeys(src) {
		s := src[rel]
		d, ok := dst[rel]
		if !ok || entriesDiffer(s, d) {
			plan.Actions = append(plan.Actions, copyAction(rel, s, resolve.destPath(rel), models.WinnerSource))
		}
	}
	for _, rel := range sortedKeys(dst) {
		if _, ok := src[rel]; !ok {
			plan.Actions = append(plan.Actions, models.SyncAction{
				Type:    models.ActionDelete,
				RelPath: rel,
				Dest:    dst[rel].AbsPath,
				Size:    dst[rel].Size,
			})
		}
	}
}

// planOneDirectional covers update and one_way: copy new entries, copy over
// older targets, never delete. one_way additionally documents every target
// that was protected for being newer than its source.
func (e *Engine) planOneDirectional(src, dst map[string]models.FileEntry, resolve pathResolver, plan *models.SyncPlan, oneWay bool) {
	for _, rel := range sortedKeys(src) {
		s := src[rel]
		d, ok := dst[rel]
		switch {
		case !ok:
			plan.Actions = append(plan.Actions, copyAction(rel, s, resolve.destPath(rel), models.WinnerSource))
		case conflict.Newer(s, d):
			plan.Actions = append(plan.Actions, copyAction(rel, s, resolve.destPath(rel), models.WinnerSource))
		case oneWay && conflict.Newer(d, s):
			plan.Actions = append(plan.Actions, models.SyncAction{
				Type:    models.ActionSkip,
				RelPath: rel,
				Reason:  models.SkipTargetNewer,
				Dest:    d.AbsPath,
			})
		}
	}
	for _, rel := range sortedKeys(dst) {
		if _, ok := src[rel]; !ok {
			plan.Actions = append(plan.Actions, models.SyncAction{
				Type:    models.ActionSkip,
				RelPath: rel,
				Reason:  models.SkipTargetOnly,
				Dest:    dst[rel].AbsPath,
			})
		}
	}
}

// planTwoWay copies missing entries in both directions and hands divergent
// pairs to the conflict resolver. The resulting conflict action copies the
// winner's content over the loser.
func (e *Engine) planTwoWay(conn models.Connection, src, dst map[string]models.FileEntry, resolve pathResolver, plan *models.SyncPlan) {
	for _, rel := range unionKeys(src, dst) {
		s, inSrc := src[rel]
		d, inDst := dst[rel]
		switch {
		case inSrc && !inDst:
			plan.Actions = append(plan.Actions, copyAction(rel, s, resolve.destPath(rel), models.WinnerSource))
		case !inSrc && inDst:
			plan.Actions = append(plan.Actions, copyAction(rel, d, resolve.sourcePath(rel), models.WinnerTarget))
		case entriesDiffer(s, d):
			a := models.SyncAction{Type: models.ActionConflict, RelPath: rel}
			a.Winner = conflict.Resolve(s, d, conn.ConflictPolicy)
			if a.Winner == models.WinnerSource {
				a.Source, a.Dest, a.Size = s.AbsPath, resolve.destPath(rel), s.Size
			} else {
				a.Source, a.Dest, a.Size = d.AbsPath, resolve.sourcePath(rel), d.Size
			}
			plan.Actions = append(plan.Actions, a)
		}
	}
}

// planIndexOnly moves no data: every entry becomes a skip that the executor
// forwards to the index sink, with both sides recorded when present.
func (e *Engine) planIndexOnly(src, dst map[string]models.FileEntry, plan *models.SyncPlan) {
	for _, rel := range unionKeys(src, dst) {
		a := models.SyncAction{Type: models.ActionSkip, RelPath: rel, Reason: models.SkipIndexOnly}
		if s, ok := src[rel]; ok {
			a.Source = s.AbsPath
			a.Size = s.Size
		}
		if d, ok := dst[rel]; ok {
			a.Dest = d.AbsPath
		}
		plan.Actions = append(plan.Actions, a)
	}
}

func copyAction(rel string, from models.FileEntry, dest string, origin models.Winner) models.SyncAction {
	return models.SyncAction{
		Type:    models.ActionCopy,
		RelPath: rel,
		Source:  from.AbsPath,
		Dest:    dest,
		Size:    from.Size,
		Winner:  origin,
	}
}

func sortedKeys(m map[string]models.FileEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func unionKeys(a, b map[string]models.FileEntry) []string {
	seen := make(map[string]bool, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		seen[k] = true
		keys = append(keys, k)
	}
	for k := range b {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
