package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/crypto"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/session"
	"github.com/MKhiriev/reflog-sync/internal/store"
	"github.com/MKhiriev/reflog-sync/models"
)

type vaultService struct {
	records  store.Repository
	keychain crypto.KeyChainService
	session  *session.Session

	now    func() time.Time
	logger *logger.Logger
}

func NewVaultService(records store.Repository, keychain crypto.KeyChainService, sess *session.Session, logger *logger.Logger) VaultService {
	return &vaultService{
		records:  records,
		keychain: keychain,
		session:  sess,
		now:      time.Now,
		logger:   logger,
	}
}

func (v *vaultService) IsSetUp(ctx context.Context) (bool, error) {
	_, err := v.loadMeta(ctx)
	if errors.Is(err, ErrVaultNotSetUp) {
		return false, nil
	}
	return err == nil, err
}

// Setup implements VaultService.
//
// A new vault (salt == nil) stores its metadata as a tracked change, so it
// is pushed to the server. A device joining an existing vault keeps its
// metadata local: the original is pulled on initial sync, and a mistyped
// passphrase must not overwrite it for every other device.
func (v *vaultService) Setup(ctx context.Context, passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrInvalidDataProvided
	}

	setUp, err := v.IsSetUp(ctx)
	if err != nil {
		return nil, err
	}
	if setUp {
		return nil, ErrVaultAlreadySetUp
	}

	joining := salt != nil
	if !joining {
		if salt, err = v.keychain.GenerateSalt(); err != nil {
			return nil, fmt.Errorf("vault setup: %w", err)
		}
	}

	key := v.keychain.DeriveKey(passphrase, salt)
	defer zero(key)

	verification, err := v.keychain.NewVerification(key)
	if err != nil {
		return nil, fmt.Errorf("vault setup: %w", err)
	}

	doc, err := models.NewDocument(models.VaultMeta{
		ID:           models.VaultMetaID,
		Salt:         salt,
		Iterations:   v.keychain.Iterations(),
		CreatedAt:    v.now().UTC(),
		Verification: verification,
	})
	if err != nil {
		return nil, fmt.Errorf("vault setup: %w", err)
	}

	v.session.Unlock(key)

	writeCtx := ctx
	if joining {
		writeCtx = store.WithRemoteApply(ctx)
	}
	if err = v.records.Put(writeCtx, models.TableVaultMeta, doc); err != nil {
		v.session.Lock()
		return nil, fmt.Errorf("store vault metadata: %w", err)
	}

	v.logger.Info().Bool("joined", joining).Msg("vault set up")
	return salt, nil
}

func (v *vaultService) Unlock(ctx context.Context, passphrase string) error {
	meta, err := v.loadMeta(ctx)
	if err != nil {
		return err
	}

	keychain := v.keychain
	if meta.Iterations > 0 && meta.Iterations != keychain.Iterations() {
		keychain = crypto.NewKeyChainServiceWithIterations(meta.Iterations)
	}

	key := keychain.DeriveKey(passphrase, meta.Salt)
	defer zero(key)

	if err = keychain.Verify(key, meta.Verification); err != nil {
		v.logger.Warn().Msg("vault unlock rejected")
		return err
	}

	v.session.Unlock(key)
	return nil
}

func (v *vaultService) Lock() {
	v.session.Lock()
}

func (v *vaultService) loadMeta(ctx context.Context) (models.VaultMeta, error) {
	doc, err := v.records.Get(ctx, models.TableVaultMeta, models.VaultMetaID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return models.VaultMeta{}, ErrVaultNotSetUp
	}
	if err != nil {
		return models.VaultMeta{}, fmt.Errorf("read vault metadata: %w", err)
	}

	var meta models.VaultMeta
	if err = doc.Decode(&meta); err != nil {
		return models.VaultMeta{}, fmt.Errorf("decode vault metadata: %w", err)
	}
	return meta, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
