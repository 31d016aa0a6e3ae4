package store

import (
	"context"
	"fmt"

	"github.com/diewo77/go-complaints/gate"
	"github.com/diewo77/go-complaints/internal/models"
	"github.com/diewo77/go-complaints/internal/policy"
	"gorm.io/gorm"
)

// ProfilePatch carries the profile fields to change; nil means unchanged.
type ProfilePatch struct {
	FullName   *string `json:"full_name"`
	AvatarURL  *string `json:"avatar_url"`
	Phone      *string `json:"phone"`
	Department *string `json:"department"`
	Batch      *string `json:"batch"`
}

func (s *Store) GetProfile(ctx context.Context, actor Actor, id string) (*models.Profile, error) {
	ok, err := s.readable(ctx, actor, policy.TableProfiles)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: profile", ErrNotFound)
	}
	var p models.Profile
	err = s.withActor(ctx, actor, func(tx *gorm.DB) error {
		return tx.First(&p, "id = ?", id).Error
	})
	if err != nil {
		return nil, notFound(err, "profile")
	}
	return &p, nil
}

// ListProfiles returns the given profiles, or every profile when ids is empty.
func (s *Store) ListProfiles(ctx context.Context, actor Actor, ids ...string) ([]models.Profile, error) {
	ok, err := s.readable(ctx, actor, policy.TableProfiles)
	if err != nil || !ok {
		return []models.Profile{}, err
	}
	profiles := []models.Profile{}
	err = s.withActor(ctx, actor, func(tx *gorm.DB) error {
		q := tx.Order("full_name")
		if len(ids) > 0 {
			q = q.Where("id IN ?", ids)
		}
		return q.Find(&profiles).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// UpdateProfile changes the owner's own profile. updated_at is always stamped.
func (s *Store) UpdateProfile(ctx context.Context, actor Actor, id string, patch ProfilePatch) (*models.Profile, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	var p models.Profile
	err := s.withActor(ctx, actor, func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return notFound(err, "profile")
		}
		if err := s.authorize(ctx, actor, gate.ActionUpdate, policy.TableProfiles, &p); err != nil {
			return err
		}

		var cols []string
		set := func(col string, dst *string, v *string) {
			if v != nil {
				*dst = *v
				cols = append(cols, col)
			}
		}
		set("FullName", &p.FullName, patch.FullName)
		set("AvatarURL", &p.AvatarURL, patch.AvatarURL)
		set("Phone", &p.Phone, patch.Phone)
		set("Department", &p.Department, patch.Department)
		set("Batch", &p.Batch, patch.Batch)
		if len(cols) == 0 {
			return nil
		}
		return tx.Model(&p).Select(cols).Updates(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
