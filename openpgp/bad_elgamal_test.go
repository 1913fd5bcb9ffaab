package openpgp

import (
	"strings"
	"testing"

	"github.com/nguyennv/gopg/openpgp/clearsign"
	gopgp_crypto "github.com/nguyennv/gopg/openpgp/crypto"
	"github.com/nguyennv/gopg/openpgp/errors"
)

func TestBadElgamal(t *testing.T) {
	// When an algo-20 (ElGamal sign+encrypt, deprecated) subkey is read, it
	// ends up in BadSubkeys with a DeprecatedKeyError rather than aborting
	// the whole parse.
	entities, err := ReadArmoredKeyRing(strings.NewReader(publicKey))
	if err != nil {
		t.Fatalf("error opening keys: %v", err)
	}
	if len(entities) != 1 {
		t.Fatal("expected only 1 key")
	}
	entity := entities[0]
	if len(entity.Subkeys) != 0 {
		t.Fatalf("expected no good subkeys, got %d", len(entity.Subkeys))
	}
	if len(entity.BadSubkeys) != 1 {
		t.Fatal("expected 1 bad subkey")
	}
	if _, ok := entity.BadSubkeys[0].Err.(errors.DeprecatedKeyError); !ok {
		t.Fatalf("expected DeprecatedKeyError, got %T: %v", entity.BadSubkeys[0].Err, entity.BadSubkeys[0].Err)
	}

	// A clearsign message produced with such a key fails to decode its
	// signature's public-key algorithm rather than silently verifying.
	decoded, err := clearsign.Decode([]byte(clearsignMsg))
	if err != nil {
		t.Fatalf("failed to decode clearsign message: %v", err)
	}
	if decoded.Signature.PubKeyAlgo != 20 {
		t.Fatalf("expected signature to carry the deprecated ElGamal algo id, got %d", decoded.Signature.PubKeyAlgo)
	}
	err = decoded.Signature.Verify(gopgp_crypto.DefaultProvider{}, entity.BadSubkeys[0].PublicKey, decoded.Text, decoded.Signature.CreationTime)
	if _, ok := err.(errors.UnsupportedError); !ok {
		t.Fatalf("expected UnsupportedError verifying a PubKeyAlgoElGamalSign signature, got %T: %v", err, err)
	}
}

const publicKey = `-----BEGIN PGP PUBLIC KEY BLOCK-----
Version: GnuPG v1.2.0 (GNU/Linux)

mQGiBFpM17MRBADdWeXsUegcrx7rUON8+a0douslKTkj/z8E1FFLP6u25UJSsLdj
/39ClQJVreLNbNuDSM/Z5gX8oRIkYGMK5TAa1M47+ZOXfkbsP4NVx0iwWxcktmpG
I/GOo2Wc2a8McX5HQ1o9l0AjVM+0JOvnmidlVAh8b4MuGlXnb+EpCFpOOwCgvnC3
5z8lUmaDXJ5dU41UwgZcQAkD/AnB/NLrN9J6vK2hbTpCexsHrttIqLykCuwC4R5V
aVM/Qy0FK9BA7Jw+P+se01qfj8r6p7H4WP7l+ByGF2SwZ50PuAdeTVMo4LqP9pXs
kz7tM4uM8PBta+o2QOvnjpdlGwbN7kTd9B2UyaI8GnDL7k0el6oZB7o3R+GD8Xii
pWdxA/4naRWXes0ZTER1mq8ssogNLtTrjWjF5naQE5rhPcoM+3GT0HTk3PySBRPI
Dk9M9V+6OmqxqCHcUBNd58I8mqwicfBrG6I3Jb9u+YCdty7XF2AvXQwkfL35Zq8u
0TRASP5PG2l5KdUpWstZOWPEGRGsZP49+ewoLeqcV6msoOsj07QORWxnYW1hbCBU
ZXN0ZXKIWQQTEQIAGQUCWkzXswQLBwMCAxUCAwMWAgECHgECF4AACgkQl+HNHuDC
7kWSqgCcDFgo+4EO+IiZTuXgeUWsH0alzawAnRK7rIxMqciYkrpHNsXIno1R+kJQ
uM0EWkzXsxADAO6EHCPdw6EUAnZsd1GWmsYHEqdfduoqWtJCzsgDW0OSQe70bH15
kaxITv/QpJr6gPs7aW13gcF4l9Q/rW+BJlSbSOwtp1ndq9GQ7E5QGCjgflFGCmZw
1OLlSLZyQukVfwADBQMAwasRRlXw/uideJAgSUDcE5m7DBZrTExl2nC/oOogyIaW
H5I+FFEfNXs7whjK/1ixoLJTFaiwkW4mvYYoGzDeTHIgRLeVHeAuSRfC3oBAua3f
BokQ68fgEHGDADVJoQj7iEYEGBECAAYFAlpM17MACgkQl+HNHuDC7kXMDQCgp90K
3OsRXnsK/LLvYeNCDrRGyrsAn3pj+2rTU75VMwyDb5mndZAGH2TjuM0EWkzX1xQD
AJbyZopv9OdtX4j4to3jX8PgFrpSEEQT+qiHben8CYTtiOzWClurYHhZdHq6dhqc
EACvLGNQM8EXmmGHs1Aa6eRf4WLYo8hRs2Wf7275Mu4iw5h0X2kgSj02tXEaPwkt
4wADBQL+M4x1R90WDz1h92lJ/YcgFeINW8hxGVwCeeeZ+62vc4SLB3i/jfN6dx4Q
9vjLd+BrnzkwFzc6QW9UqpL3TvB9xruunJJMqybAiJshyOabu6urVUPw1eMg1La8
wd0afBLHiEYEGBECAAYFAlpM19cACgkQl+HNHuDC7kU26wCdEXpc0j9DutGh2ABg
ygm0xrHw5xEAoJonEzW5F3oDhft9cfKk4mR+QAnv
=qGLg
-----END PGP PUBLIC KEY BLOCK-----`

const clearsignMsg = `-----BEGIN PGP SIGNED MESSAGE-----
Hash: SHA1

aaa
-----BEGIN PGP SIGNATURE-----
Version: GnuPG v1.2.0 (GNU/Linux)

iNcDBQFaTOUbUXZ9JopEDEYUAmtOAv427hD+yJD5i8lv2HISIB4XnG5NQcX3HMbp
4JzS/17T0PVzhbUaoguK4S4HbCy2TKDAiqFW+uTPVD2g/hDdz3iigdZC0q2qATfS
F4cO0rBiZy0h/MadrW54md5VPd3cruQC/j9P1MQF1pzp1R8DKrI/aD2zUxzv3tR2
5kMs9zLJFk+sEY3ppati3sUZpwukn4tNXsMVq5VUjKu81jUxr5Te/114gjbk6Oqo
bvEOhvf8VAzGswfr7Ur2/KN0D5n1Zr5wmA==
=yqX0
-----END PGP SIGNATURE-----`
