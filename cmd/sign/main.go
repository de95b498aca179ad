package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/challenge"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/signature"
)

// Signs a payload the way a platform would, for replaying deliveries against
// a running gateway:
//
//	sign -platform facebook -secret $SECRET -file event.json
//	sign -platform twitter -secret $SECRET -crc abc123
func main() {
	if err := run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(stdin io.Reader, stdout io.Writer) error {
	platformName := flag.String("platform", "", "facebook, instagram, twitter or linkedin")
	secret := flag.String("secret", "", "Webhook config secret")
	file := flag.String("file", "", "Payload file (stdin when empty)")
	crc := flag.String("crc", "", "Answer a twitter crc_token instead of signing a payload")
	code := flag.String("challenge-code", "", "Answer a linkedin challengeCode instead of signing a payload")
	flag.Parse()

	if *secret == "" {
		return errors.New("-secret is required")
	}

	platform, err := domain.ParsePlatform(*platformName)
	if err != nil {
		return err
	}

	switch {
	case *crc != "":
		_, err = fmt.Fprintf(stdout, "response_token=%s\n", challenge.CRCToken(*secret, *crc))
		return err
	case *code != "":
		_, err = fmt.Fprintf(stdout, "challengeResponse=%s\n", challenge.ChallengeResponse(*secret, *code))
		return err
	}

	var body []byte
	if *file != "" {
		body, err = os.ReadFile(*file)
	} else {
		body, err = io.ReadAll(stdin)
	}
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	header, value, err := signature.Sign(platform, *secret, body)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(stdout, "%s: %s\n", header, value)
	return err
}
