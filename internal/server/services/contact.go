package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dkovalenko/contactbook/internal/common"
	"github.com/dkovalenko/contactbook/internal/dbx"
	sc "github.com/dkovalenko/contactbook/internal/server/config"
	"github.com/dkovalenko/contactbook/internal/server/models"
	"github.com/dkovalenko/contactbook/internal/server/repositories/repomanager"
)

// Seams for testing the AWS presign plumbing.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// How far ahead the upcoming-birthdays window reaches, starting today.
const upcomingBirthdayWindowDays = 7

const presignedURLValidity = 15 * time.Minute

// ContactService implements owner-scoped operations over the contacts table
// plus presigned avatar URLs. Every operation takes the owning user's id;
// a contact owned by someone else is indistinguishable from a missing one.
type ContactService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewContactService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config) *ContactService {
	return &ContactService{
		db:          db,
		repomanager: m,
		config:      cfg,
	}
}

func (s *ContactService) Create(ctx context.Context, userID string, contact *models.Contact) (*models.Contact, error) {
	if contact.FirstName == "" || contact.LastName == "" || contact.Email == "" {
		return nil, common.ErrorValidation
	}
	contact.UserID = userID

	repo := s.repomanager.Contacts(s.db)
	c, err := repo.Create(ctx, contact)
	if err != nil {
		return nil, fmt.Errorf("error creating contact: %v", err)
	}
	return c, nil
}

func (s *ContactService) Get(ctx context.Context, userID string, id string) (*models.Contact, error) {
	repo := s.repomanager.Contacts(s.db)
	return repo.GetByID(ctx, userID, id)
}

func (s *ContactService) List(ctx context.Context, userID string, offset int, limit int) ([]*models.Contact, error) {
	repo := s.repomanager.Contacts(s.db)
	return repo.List(ctx, userID, offset, limit)
}

func (s *ContactService) Update(ctx context.Context, userID string, contact *models.Contact) (*models.Contact, error) {
	if contact.FirstName == "" || contact.LastName == "" || contact.Email == "" {
		return nil, common.ErrorValidation
	}
	contact.UserID = userID

	repo := s.repomanager.Contacts(s.db)
	return repo.Update(ctx, contact)
}

func (s *ContactService) Delete(ctx context.Context, userID string, id string) error {
	repo := s.repomanager.Contacts(s.db)
	return repo.Delete(ctx, userID, id)
}

func (s *ContactService) Search(ctx context.Context, userID string, query string) ([]*models.Contact, error) {
	repo := s.repomanager.Contacts(s.db)
	return repo.Search(ctx, userID, query)
}

// UpcomingBirthdays returns the user's contacts whose birthday (month and
// day, year ignored) falls within the next upcomingBirthdayWindowDays days.
// The window wraps the year boundary.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, userID string) ([]*models.Contact, error) {
	repo := s.repomanager.Contacts(s.db)
	return repo.WithBirthdayOn(ctx, userID, birthdayWindow(time.Now(), upcomingBirthdayWindowDays))
}

// birthdayWindow returns the "MM-DD" values of the days-long window that
// starts at from. AddDate handles month and year wrap.
func birthdayWindow(from time.Time, days int) []string {
	window := make([]string, 0, days)
	for i := 0; i < days; i++ {
		window = append(window, from.AddDate(0, 0, i).Format("01-02"))
	}
	return window
}

// --- avatar storage ---

func randomAvatarKey(userID string) string {
	return fmt.Sprintf("avatars/%s/%v", userID, uuid.New())
}

func (s *ContactService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// AvatarUploadURL verifies ownership of the contact, allocates a fresh
// storage key, records it on the row, and returns the key together with a
// presigned PUT URL the client uploads the image to directly. The ownership
// check and the key update run in one transaction; presigning is local
// signing, no network call happens inside it.
func (s *ContactService) AvatarUploadURL(ctx context.Context, userID string, id string) (string, string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := randomAvatarKey(userID)

	var uploadURL string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contacts(tx)
		if _, err := repo.GetByID(ctx, userID, id); err != nil {
			return err
		}

		req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
			Bucket: &bucket,
			Key:    &key,
		}, s3.WithPresignExpires(presignedURLValidity))
		if err != nil {
			return err
		}
		uploadURL = req.URL

		return repo.SetAvatarKey(ctx, userID, id, key)
	})
	if err != nil {
		return "", "", err
	}

	return key, uploadURL, nil
}

// AvatarDownloadURL returns a presigned GET URL for the contact's avatar.
// Contacts without an avatar yield common.ErrorNotFound.
func (s *ContactService) AvatarDownloadURL(ctx context.Context, userID string, id string) (string, error) {
	repo := s.repomanager.Contacts(s.db)
	contact, err := repo.GetByID(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if contact.AvatarKey == nil {
		return "", common.ErrorNotFound
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    contact.AvatarKey,
	}, s3.WithPresignExpires(presignedURLValidity))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
