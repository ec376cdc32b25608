package models

import "time"

// MergeProfile reconciles the cached profile with the backend's copy.
//
// Metadata: a field listed in pending keeps its local value; every other
// field comes from the newer block by UpdatedAt, ties going to remote.
// Physical attributes are merged by MergePhysical. Device-only fields always
// come from local.
func MergeProfile(local, remote *UserProfile, pending []string) *UserProfile {
	if remote == nil {
		return local
	}
	if local == nil {
		out := *remote
		out.Physical = clonePhysical(remote.Physical)
		return &out
	}

	out := *local
	out.Metadata = mergeMetadata(local.Metadata, remote.Metadata, pending)
	out.Physical = MergePhysical(local.Physical, remote.Physical)
	out.PendingFields = append([]string(nil), pending...)
	out.UpdatedAt = latest(local.UpdatedAt, remote.UpdatedAt)
	return &out
}

func mergeMetadata(local, remote UserProfileMetadata, pending []string) UserProfileMetadata {
	out := remote
	if local.UpdatedAt.After(remote.UpdatedAt) {
		out = local
	}

	out.ID = firstNonEmpty(remote.ID, local.ID)
	out.UserID = firstNonEmpty(remote.UserID, local.UserID)
	if out.CreatedAt.IsZero() || (!local.CreatedAt.IsZero() && local.CreatedAt.Before(out.CreatedAt)) {
		out.CreatedAt = local.CreatedAt
	}
	out.UpdatedAt = latest(local.UpdatedAt, remote.UpdatedAt)

	for _, f := range pending {
		switch f {
		case FieldName:
			out.Name = local.Name
		case FieldBio:
			out.Bio = local.Bio
		case FieldPreferredUnitSystem:
			out.PreferredUnitSystem = local.PreferredUnitSystem
		case FieldLanguageCode:
			out.LanguageCode = local.LanguageCode
		case FieldDateOfBirth:
			out.DateOfBirth = local.DateOfBirth
		}
	}
	return out
}

// MergePhysical merges two physical profiles attribute by attribute.
//
// The value with the higher-ranked source wins; on equal rank the newer
// profile wins, ties going to remote. A nil value never replaces a set one,
// so a HealthKit-sourced attribute can only be replaced by another HealthKit
// reading.
func MergePhysical(local, remote *PhysicalProfile) *PhysicalProfile {
	if remote == nil {
		return clonePhysical(local)
	}
	if local == nil {
		return clonePhysical(remote)
	}

	out := &PhysicalProfile{UpdatedAt: latest(local.UpdatedAt, remote.UpdatedAt)}
	out.BiologicalSex, out.BiologicalSexSource = pick(
		local.BiologicalSex, local.BiologicalSexSource, local.UpdatedAt,
		remote.BiologicalSex, remote.BiologicalSexSource, remote.UpdatedAt)
	out.HeightCm, out.HeightSource = pick(
		local.HeightCm, local.HeightSource, local.UpdatedAt,
		remote.HeightCm, remote.HeightSource, remote.UpdatedAt)
	out.DateOfBirth, out.DateOfBirthSource = pick(
		local.DateOfBirth, local.DateOfBirthSource, local.UpdatedAt,
		remote.DateOfBirth, remote.DateOfBirthSource, remote.UpdatedAt)
	return out
}

func pick[T any](lv *T, ls DataSource, lt time.Time, rv *T, rs DataSource, rt time.Time) (*T, DataSource) {
	switch {
	case rv == nil:
		return clonePtr(lv), ls
	case lv == nil:
		return clonePtr(rv), rs
	case ls.Rank() > rs.Rank():
		return clonePtr(lv), ls
	case rs.Rank() > ls.Rank():
		return clonePtr(rv), rs
	case lt.After(rt):
		return clonePtr(lv), ls
	default:
		return clonePtr(rv), rs
	}
}

// ApplyPhysicalPatch merges a single-source patch into current and returns the
// result together with the patched fields that were rejected because a
// stronger source already owns them.
func ApplyPhysicalPatch(current *PhysicalProfile, patch PhysicalPatch, source DataSource, at time.Time) (*PhysicalProfile, []string) {
	incoming := patch.Profile(source, at)
	merged := MergePhysical(current, incoming)

	var rejected []string
	if patch.BiologicalSex != nil && merged.BiologicalSexSource != source {
		rejected = append(rejected, "biological_sex")
	}
	if patch.HeightCm != nil && merged.HeightSource != source {
		rejected = append(rejected, "height_cm")
	}
	if patch.DateOfBirth != nil && merged.DateOfBirthSource != source {
		rejected = append(rejected, FieldDateOfBirth)
	}
	return merged, rejected
}

func clonePhysical(p *PhysicalProfile) *PhysicalProfile {
	if p == nil {
		return nil
	}
	out := *p
	out.BiologicalSex = clonePtr(p.BiologicalSex)
	out.HeightCm = clonePtr(p.HeightCm)
	out.DateOfBirth = clonePtr(p.DateOfBirth)
	return &out
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
