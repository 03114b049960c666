// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package cli_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

const cliPhone = "+8618000000000"

// fieldValue returns the value printed after label.
func fieldValue(out, label string) string {
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, label); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

var _ = Describe("Migrate Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		cleanupDatabase(ctx, env.pool)
	})

	It("applies every migration and reports the version", func() {
		output, err := phoneauth(ctx, "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", output)
		Expect(output).To(ContainSubstring("Applying 2 migration(s)"))

		output, err = phoneauth(ctx, "migrate", "status")
		Expect(err).NotTo(HaveOccurred(), "migrate status failed: %s", output)
		Expect(output).To(ContainSubstring("Current version: 2"))
		Expect(output).To(ContainSubstring("Pending: none"))

		var count int
		err = env.pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM information_schema.tables WHERE table_name IN ('accounts', 'login_tokens')",
		).Scan(&count)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(2))
	})

	It("rolls everything back only with confirmation", func() {
		output, err := phoneauth(ctx, "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", output)

		output, err = phoneauth(ctx, "migrate", "down", "--steps=0")
		Expect(err).To(HaveOccurred())
		Expect(output).To(ContainSubstring("--yes"))

		output, err = phoneauth(ctx, "migrate", "down", "--steps=0", "--yes")
		Expect(err).NotTo(HaveOccurred(), "migrate down failed: %s", output)

		output, err = phoneauth(ctx, "migrate", "version")
		Expect(err).NotTo(HaveOccurred(), "migrate version failed: %s", output)
		Expect(output).To(ContainSubstring("none"))
	})
})

var _ = Describe("Account Commands", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		cleanupDatabase(ctx, env.pool)
		output, err := phoneauth(ctx, "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", output)
	})

	It("creates an account and logs in across invocations", func() {
		output, err := phoneauth(ctx, "--store", "postgres", "account", "create", cliPhone, "--password", "123456")
		Expect(err).NotTo(HaveOccurred(), "create failed: %s", output)
		Expect(output).To(ContainSubstring("Created account"))

		output, err = phoneauth(ctx, "--store", "postgres", "account", "login", cliPhone, "--password", "123456")
		Expect(err).NotTo(HaveOccurred(), "login failed: %s", output)
		token := fieldValue(output, "Token:")
		Expect(token).To(HaveLen(64))

		var sessions int
		err = env.pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM login_tokens t JOIN accounts a ON a.id = t.account_id WHERE a.phone_number = $1",
			cliPhone,
		).Scan(&sessions)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions).To(Equal(1))

		output, err = phoneauth(ctx, "--store", "postgres", "account", "logout", "--token", token)
		Expect(err).NotTo(HaveOccurred(), "logout failed: %s", output)

		err = env.pool.QueryRow(ctx, "SELECT COUNT(*) FROM login_tokens").Scan(&sessions)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions).To(Equal(0))
	})

	It("rate limits a second code request", func() {
		output, err := phoneauth(ctx, "--store", "postgres", "account", "request-code", cliPhone)
		Expect(err).NotTo(HaveOccurred(), "request-code failed: %s", output)

		var code string
		err = env.pool.QueryRow(ctx,
			"SELECT verify_code FROM accounts WHERE phone_number = $1", cliPhone,
		).Scan(&code)
		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(HaveLen(4))

		output, err = phoneauth(ctx, "--store", "postgres", "account", "request-code", cliPhone)
		Expect(err).To(HaveOccurred())
		Expect(output).To(ContainSubstring("try again in"))

		output, err = phoneauth(ctx, "--store", "postgres", "account", "verify", cliPhone, code, "--password", "123456")
		Expect(err).NotTo(HaveOccurred(), "verify failed: %s", output)

		output, err = phoneauth(ctx, "--store", "postgres", "account", "show", cliPhone)
		Expect(err).NotTo(HaveOccurred(), "show failed: %s", output)
		Expect(output).To(MatchRegexp(`Verified\s+true`))
	})
})
