package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/dot-spend/internal"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

var _ = ginkgo.Describe("TokenIssuer", func() {
	const secret = "0123456789abcdef-secret"

	var (
		issuer *TokenIssuer
		now    time.Time
	)

	ginkgo.BeforeEach(func() {
		var err error
		issuer, err = NewTokenIssuer(secret, time.Hour)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		issuer.SetClock(func() time.Time { return now })
	})

	ginkgo.It("requires a secret", func() {
		_, err := NewTokenIssuer("", time.Hour)
		gomega.Expect(err).To(gomega.Equal(ErrMissingSecret))
	})

	ginkgo.Describe("Issue", func() {
		ginkgo.It("signs a token that validates back to the subject", func() {
			token, expiresAt, err := issuer.Issue("laptop", 0)

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(expiresAt).To(gomega.Equal(now.Add(time.Hour)))

			claims, err := issuer.Validate(token)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(claims.Subject).To(gomega.Equal("laptop"))
			gomega.Expect(claims.Issuer).To(gomega.Equal(Issuer))
		})

		ginkgo.It("honours an explicit lifetime", func() {
			_, expiresAt, err := issuer.Issue("phone", 10*time.Minute)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(expiresAt).To(gomega.Equal(now.Add(10 * time.Minute)))
		})
	})

	ginkgo.Describe("Validate", func() {
		ginkgo.It("reports expired tokens", func() {
			token, _, err := issuer.Issue("laptop", time.Minute)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			now = now.Add(2 * time.Minute)
			_, err = issuer.Validate(token)

			gomega.Expect(err).To(gomega.Equal(ErrTokenExpired))
		})

		ginkgo.It("rejects tokens signed with another secret", func() {
			other, err := NewTokenIssuer("another-secret-0123456789", time.Hour)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			other.SetClock(func() time.Time { return now })
			token, _, err := other.Issue("laptop", 0)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = issuer.Validate(token)

			gomega.Expect(apperrors.IsType(err, apperrors.ErrorTypeUnauthorized)).To(gomega.BeTrue())
		})

		ginkgo.It("rejects unsigned tokens", func() {
			token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{}).SignedString(jwt.UnsafeAllowNoneSignatureType)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = issuer.Validate(token)

			gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
		})

		ginkgo.It("rejects garbage", func() {
			_, err := issuer.Validate("invalid.token.here")
			gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
		})
	})
})
