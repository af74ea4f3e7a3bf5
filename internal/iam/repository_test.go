package iam

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/database"
	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/models"
)

func openTestRepo(t *testing.T) *UserRepository {
	t.Helper()

	db, err := database.Open(database.Config{Driver: "sqlite"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	repo, err := NewUserRepository(db)
	require.NoError(t, err)
	return repo
}

func TestNewUserRepositoryRequiresDB(t *testing.T) {
	_, err := NewUserRepository(nil)
	require.Error(t, err)
}

func TestAddAndFind(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	user := models.NewUser("repo-alice", "hash")
	require.NoError(t, repo.Add(ctx, user))
	require.NotZero(t, user.ID)

	byName, err := repo.FindByUsername(ctx, "repo-alice")
	require.NoError(t, err)
	require.Equal(t, user.ID, byName.ID)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "repo-alice", byID.Username)
}

func TestFindReportsNotFound(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	_, err := repo.FindByUsername(ctx, "repo-nobody")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByID(ctx, 9999)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByUsernameForUpdate(ctx, "repo-nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExistsByUsername(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	taken, err := repo.ExistsByUsername(ctx, "repo-bob")
	require.NoError(t, err)
	require.False(t, taken)

	require.NoError(t, repo.Add(ctx, models.NewUser("repo-bob", "hash")))

	taken, err = repo.ExistsByUsername(ctx, "repo-bob")
	require.NoError(t, err)
	require.True(t, taken)
}

func TestUpdatePersistsTwoFactorState(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	user := models.NewUser("repo-carol", "hash")
	require.NoError(t, repo.Add(ctx, user))

	user.SetTwoFactorSecret("JBSWY3DPEHPK3PXP")
	require.NoError(t, user.EnableTwoFactor())
	require.NoError(t, repo.Update(ctx, user))

	stored, err := repo.FindByUsername(ctx, "repo-carol")
	require.NoError(t, err)
	require.True(t, stored.TwoFactorEnabled)
	require.NotNil(t, stored.TwoFactorSecret)
	require.Equal(t, "JBSWY3DPEHPK3PXP", *stored.TwoFactorSecret)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(txRepo *UserRepository) error {
		if err := txRepo.Add(ctx, models.NewUser("repo-dave", "hash")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.FindByUsername(ctx, "repo-dave")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionCommits(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	err := repo.Transaction(ctx, func(txRepo *UserRepository) error {
		user, err := txRepo.FindByUsernameForUpdate(ctx, "repo-erin")
		if err != nil {
			return err
		}
		user.SetTwoFactorSecret("NEWSECRET")
		return txRepo.Update(ctx, user)
	})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Add(ctx, models.NewUser("repo-erin", "hash")))

	err = repo.Transaction(ctx, func(txRepo *UserRepository) error {
		user, err := txRepo.FindByUsernameForUpdate(ctx, "repo-erin")
		if err != nil {
			return err
		}
		user.SetTwoFactorSecret("NEWSECRET")
		return txRepo.Update(ctx, user)
	})
	require.NoError(t, err)

	stored, err := repo.FindByUsername(ctx, "repo-erin")
	require.NoError(t, err)
	require.NotNil(t, stored.TwoFactorSecret)
	require.Equal(t, "NEWSECRET", *stored.TwoFactorSecret)
}
