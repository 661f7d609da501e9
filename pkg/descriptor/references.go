package descriptor

import (
	"errors"
	"io/fs"
	"path"
	"runtime"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/ethpandaops/labdesc/pkg/types"
)

// Reference is one file referenced by a descriptor.
type Reference struct {
	// Field is the schema path of the reference, e.g. details.steps[0].verify.
	Field string
	// Path is the reference as written in the descriptor.
	Path string
	// Executable is set for verification scripts.
	Executable bool
}

// References lists every non-empty file reference of d in the order a
// learner meets them: intro, steps, finish.
func References(d *types.LabDescriptor) []Reference {
	var refs []Reference

	add := func(p *field.Path, ref string, executable bool) {
		if ref == "" {
			return
		}

		refs = append(refs, Reference{Field: p.String(), Path: ref, Executable: executable})
	}

	details := field.NewPath("details")

	addSection := func(s *types.Section, p *field.Path) {
		if s == nil {
			return
		}

		add(p.Child("text"), s.Text, false)
		add(p.Child("courseData"), s.CourseData, false)
		add(p.Child("background"), s.Background, false)
		add(p.Child("foreground"), s.Foreground, false)
	}

	addSection(d.Details.Intro, details.Child("intro"))

	for i, step := range d.Details.Steps {
		p := details.Child("steps").Index(i)
		add(p.Child("text"), step.Text, false)
		add(p.Child("verify"), step.Verify, true)
		add(p.Child("background"), step.Background, false)
		add(p.Child("foreground"), step.Foreground, false)
	}

	addSection(d.Details.Finish, details.Child("finish"))

	return refs
}

// checkReferences stats every reference of d inside fsys relative to dir and
// returns the first one that cannot be used.
func checkReferences(fsys fs.FS, dir string, d *types.LabDescriptor, display string) error {
	for _, ref := range References(d) {
		reason, err := checkReference(fsys, dir, ref)
		if reason == "" {
			continue
		}

		return &ReferenceError{
			Path:   display,
			Field:  ref.Field,
			Ref:    ref.Path,
			Reason: reason,
			Err:    err,
		}
	}

	return nil
}

func checkReference(fsys fs.FS, dir string, ref Reference) (ReferenceReason, error) {
	rel := strings.ReplaceAll(ref.Path, "\\", "/")
	if path.IsAbs(rel) || isWindowsAbs(rel) {
		return ReasonOutsideRoot, nil
	}

	rel = path.Clean(rel)
	if !fs.ValidPath(rel) || escapesDir(fsys, dir, rel) {
		return ReasonOutsideRoot, nil
	}

	info, err := fs.Stat(fsys, path.Join(dir, rel))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ReasonNotFound, nil
	case err != nil:
		return ReasonUnreadable, err
	case info.IsDir():
		return ReasonIsDirectory, nil
	case ref.Executable && runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0:
		return ReasonNotExecutable, nil
	}

	return "", nil
}

// maxLinkHops bounds symlink resolution like the kernel's ELOOP limit.
const maxLinkHops = 40

// escapesDir reports whether resolving rel inside dir follows a symbolic link
// out of dir. Absolute link targets always count as escaping. Filesystems
// without fs.ReadLinkFS have no links to follow.
func escapesDir(fsys fs.FS, dir, rel string) bool {
	cur := dir
	pending := strings.Split(rel, "/")
	hops := 0

	for len(pending) > 0 {
		next := path.Join(cur, pending[0])
		pending = pending[1:]

		if !within(dir, next) {
			return true
		}

		info, err := fs.Lstat(fsys, next)
		if err != nil || info.Mode()&fs.ModeSymlink == 0 {
			cur = next

			continue
		}

		target, err := fs.ReadLink(fsys, next)
		if err != nil {
			cur = next

			continue
		}

		target = strings.ReplaceAll(target, "\\", "/")

		hops++
		if hops > maxLinkHops || path.IsAbs(target) || isWindowsAbs(target) {
			return true
		}

		// The target is relative to the link's own directory, which is cur.
		pending = append(strings.Split(target, "/"), pending...)
	}

	return false
}

func within(dir, p string) bool {
	if dir == "." {
		return fs.ValidPath(p)
	}

	return p == dir || strings.HasPrefix(p, dir+"/")
}

// isWindowsAbs reports drive-letter paths such as C:/labs/verify.sh.
func isWindowsAbs(p string) bool {
	return len(p) >= 2 && p[1] == ':' &&
		((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}
