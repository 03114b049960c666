// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package integration

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/phoneauth/internal/auth"
)

const phone = "+8618000000000"

var _ = Describe("Phone authentication", func() {
	var (
		ctx context.Context
		svc *auth.Service
		sms *outbox
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncate(ctx)
		svc, sms = newService()
	})

	Describe("registration by code", func() {
		It("normalizes a national number and logs the connection in", func() {
			Expect(svc.RequestVerification(ctx, auth.Connection{}, "180 0000 0000")).To(Succeed())
			code := sms.last(phone)
			Expect(code).To(HaveLen(4))

			pw := auth.RawPassword("123456")
			res, err := svc.VerifyPhone(ctx, auth.Connection{ID: "conn-1"}, phone, code, &pw)
			Expect(err).NotTo(HaveOccurred())

			token, err := svc.ValidateSession(ctx, res.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(token.AccountID).To(Equal(res.AccountID))

			verified, err := svc.IsPhoneVerified(ctx, res.AccountID)
			Expect(err).NotTo(HaveOccurred())
			Expect(verified).To(BeTrue())

			_, err = svc.Login(ctx, auth.Connection{ID: "conn-2"}, auth.ByPhone(phone), auth.RawPassword("123456"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("consumes the code exactly once", func() {
			Expect(svc.RequestVerification(ctx, auth.Connection{}, phone)).To(Succeed())
			code := sms.last(phone)

			_, err := svc.VerifyPhone(ctx, auth.Connection{ID: "conn-1"}, phone, code, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.VerifyPhone(ctx, auth.Connection{ID: "conn-2"}, phone, code, nil)
			Expect(auth.IsKind(err, auth.KindAuth)).To(BeTrue())
		})
	})

	Describe("concurrent code requests", func() {
		It("issues a single code and rate limits the rest", func() {
			const workers = 8
			var (
				wg          sync.WaitGroup
				mu          sync.Mutex
				issued      int
				rateLimited int
			)
			start := make(chan struct{})
			for range workers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					<-start
					err := svc.RequestVerification(ctx, auth.Connection{}, phone)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						issued++
					case auth.IsKind(err, auth.KindRateLimit):
						rateLimited++
					default:
						Fail("unexpected error: " + err.Error())
					}
				}()
			}
			close(start)
			wg.Wait()

			Expect(issued).To(Equal(1))
			Expect(rateLimited).To(Equal(workers - 1))

			var accounts, retries int
			err := pool.QueryRow(ctx,
				"SELECT COUNT(*), MAX(verify_retry_count) FROM accounts WHERE phone_number = $1", phone,
			).Scan(&accounts, &retries)
			Expect(err).NotTo(HaveOccurred())
			Expect(accounts).To(Equal(1))
			Expect(retries).To(Equal(1))
		})
	})

	Describe("password change", func() {
		It("ends every other session of the account, even on the same connection", func() {
			created, err := svc.CreateAccount(ctx, phone, ptr(auth.RawPassword("old-pw")))
			Expect(err).NotTo(HaveOccurred())

			acting, err := svc.Login(ctx, auth.Connection{ID: "shared"}, auth.ByPhone(phone), auth.RawPassword("old-pw"))
			Expect(err).NotTo(HaveOccurred())
			other, err := svc.Login(ctx, auth.Connection{ID: "shared"}, auth.ByPhone(phone), auth.RawPassword("old-pw"))
			Expect(err).NotTo(HaveOccurred())

			session, err := svc.ValidateSession(ctx, acting.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.AccountID).To(Equal(created.ID))
			Expect(svc.ChangePassword(ctx, session.Connection(), auth.RawPassword("old-pw"), auth.RawPassword("new-pw"))).To(Succeed())

			_, err = svc.ValidateSession(ctx, acting.Token)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.ValidateSession(ctx, other.Token)
			Expect(auth.IsKind(err, auth.KindAuth)).To(BeTrue())

			_, err = svc.Login(ctx, auth.Connection{ID: ulid.Make().String()}, auth.ByID(created.ID), auth.RawPassword("new-pw"))
			Expect(err).NotTo(HaveOccurred())
		})
	})
})

func ptr[T any](v T) *T { return &v }
